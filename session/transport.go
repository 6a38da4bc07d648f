package session

import "net/http"

// Transport is an http.RoundTripper for arbitrary portal API collaborators
// (course tables, CRUD forms, admin screens). It injects the session's
// Bearer token and maps a 401 response to ForceLogout, so every consumer of
// the access token reacts to token expiry the same way the auth flows do.
type Transport struct {
	Manager *Manager

	// Base is the underlying RoundTripper; http.DefaultTransport when nil.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if access := t.Manager.Snapshot().AccessToken; access != "" {
		clone := req.Clone(req.Context())
		clone.Header.Set("Authorization", "Bearer "+access)
		req = clone
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.Manager.ForceLogout(req.Context())
	}
	return resp, nil
}

// HTTPClient returns a client wired through Transport for calling the
// portal's other backend services with the current access token.
func (m *Manager) HTTPClient() *http.Client {
	return &http.Client{Transport: &Transport{Manager: m}}
}
