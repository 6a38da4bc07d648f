// Package authapi is the HTTP client for the auth backend's REST contract.
// The contract is consumed, not owned: paths, payload shapes, and error
// bodies are fixed by the backend.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campusgate/portalauth/authmodel"
	"github.com/campusgate/portalauth/session"
)

// Backend route constants.
const (
	RouteLoginV1         = "/auth/login/v1"
	RouteLoginV2         = "/auth/login/v2"
	RouteRegisterV1      = "/auth/register/v1"
	RouteRegisterV2      = "/auth/register/v2"
	RouteRefresh         = "/auth/refresh"
	RouteLogout          = "/auth/logout"
	RouteAdminLogin      = "/auth/login/admin"
	RouteUserInfo        = "/auth/get/user"
	RouteTwoFactorStatus = "/auth/status/2fa"
	RouteReset2FA        = "/auth/reset/2fa"
)

// DefaultTimeout is the fixed request deadline; a request still pending
// after this fails with the network error class. No call is ever retried.
const DefaultTimeout = 30 * time.Second

var _ session.Backend = (*Client)(nil)

// Client implements session.Backend over HTTP/JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the fixed request deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zerolog.Nop(),
	}

	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*authmodel.LoginResponse, error) {
	var resp authmodel.LoginResponse
	err := c.do(ctx, http.MethodPost, RouteLoginV1, "", authmodel.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) VerifyTOTP(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error) {
	var resp authmodel.TokenResponse
	err := c.do(ctx, http.MethodPost, RouteLoginV2, refreshToken, authmodel.TOTPRequest{TOTPCode: code}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req authmodel.RegisterRequest) (*authmodel.RegisterResponse, error) {
	var resp authmodel.RegisterResponse
	err := c.do(ctx, http.MethodPost, RouteRegisterV1, "", req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CompleteRegistration(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error) {
	var resp authmodel.TokenResponse
	err := c.do(ctx, http.MethodPost, RouteRegisterV2, refreshToken, authmodel.TOTPRequest{TOTPCode: code}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error) {
	var resp authmodel.TokenResponse
	err := c.do(ctx, http.MethodPost, RouteRefresh, refreshToken, authmodel.TOTPRequest{TOTPCode: code}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, RouteLogout, accessToken, struct{}{}, nil)
}

func (c *Client) AdminLogin(ctx context.Context, username, password string) (*authmodel.TokenResponse, error) {
	var resp authmodel.TokenResponse
	err := c.do(ctx, http.MethodPost, RouteAdminLogin, "", authmodel.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UserInfo(ctx context.Context, accessToken string) (*authmodel.User, error) {
	var resp authmodel.User
	err := c.do(ctx, http.MethodGet, RouteUserInfo, accessToken, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) TwoFactorStatus(ctx context.Context, refreshToken string) (*authmodel.TwoFactorStatus, error) {
	var resp authmodel.TwoFactorStatus
	err := c.do(ctx, http.MethodGet, RouteTwoFactorStatus, refreshToken, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetTwoFactor(ctx context.Context, resetCode, newTOTPCode string) error {
	return c.do(ctx, http.MethodPost, RouteReset2FA, "", authmodel.ResetTwoFactorRequest{ResetCode: resetCode, NewTOTPCode: newTOTPCode}, nil)
}

// do sends one request and decodes the response. Transport and deadline
// failures classify as the network error class; HTTP error statuses are
// classified per classify.go with the backend's message preserved verbatim.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return authmodel.NewAuthError(authmodel.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return authmodel.NewAuthError(authmodel.ErrNetwork, err.Error())
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("auth backend call")

	if resp.StatusCode >= 400 {
		return classify(path, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return authmodel.NewAuthError(authmodel.ErrUnknown, "malformed backend response: "+err.Error())
		}
	}
	return nil
}
