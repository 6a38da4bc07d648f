package session

import "context"

// Store persists the token pair between process runs. Implementations live
// in the credstore package. Tokens are stored verbatim; the Manager treats
// whatever comes back as unvalidated until the next backend call proves
// otherwise.
type Store interface {
	// Save writes both tokens. Either may be empty.
	Save(ctx context.Context, accessToken, refreshToken string) error

	// Load returns the persisted tokens, or empty strings when nothing has
	// been saved yet.
	Load(ctx context.Context) (accessToken, refreshToken string, err error)

	// Clear removes all persisted tokens.
	Clear(ctx context.Context) error
}
