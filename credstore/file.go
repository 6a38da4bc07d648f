package credstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/campusgate/portalauth/session"
)

var _ session.Store = (*FileStore)(nil)

// tokenPair is the on-disk shape. Tokens are stored verbatim and read back
// without integrity checking; validation is the backend's job.
type tokenPair struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// FileStore persists the token pair as a JSON file under a data directory,
// the process analog of browser local storage. With a passphrase set the
// file is sealed with chacha20poly1305 under an argon2id-derived key.
type FileStore struct {
	path       string
	passphrase string
}

// FileStoreOption defines a function type to modify the FileStore instance.
type FileStoreOption func(*FileStore)

// WithPassphrase enables at-rest encryption of the token file.
func WithPassphrase(passphrase string) FileStoreOption {
	return func(s *FileStore) {
		s.passphrase = passphrase
	}
}

// NewFileStore creates the store and ensures its directory exists.
func NewFileStore(path string, options ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create directory")
	}

	s := &FileStore{path: path}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *FileStore) Save(ctx context.Context, accessToken, refreshToken string) error {
	data, err := json.MarshalIndent(tokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] marshal tokens")
	}

	if s.passphrase != "" {
		data, err = seal(data, s.passphrase)
		if err != nil {
			return errors.Wrap(err, "[FileStore.Save] seal tokens")
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write file")
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (string, string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", nil
		}
		return "", "", errors.Wrap(err, "[FileStore.Load] read file")
	}

	if s.passphrase != "" {
		data, err = open(data, s.passphrase)
		if err != nil {
			return "", "", errors.Wrap(err, "[FileStore.Load] open sealed tokens")
		}
	}

	var pair tokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return "", "", errors.Wrap(err, "[FileStore.Load] unmarshal tokens")
	}
	return pair.AccessToken, pair.RefreshToken, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove file")
	}
	return nil
}
