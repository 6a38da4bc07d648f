package credstore

import (
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed file layout: magic || salt (16) || nonce || ciphertext.
var sealMagic = []byte("CSTK1")

const saltLength = 16

// argon2id parameters, RFC 9106 low-memory profile.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

func seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "[seal] rand.Read salt")
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, "[seal] chacha20poly1305.NewX")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "[seal] rand.Read nonce")
	}

	out := append([]byte{}, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

func open(data []byte, passphrase string) ([]byte, error) {
	if len(data) < len(sealMagic)+saltLength || string(data[:len(sealMagic)]) != string(sealMagic) {
		return nil, errors.New("[open] not a sealed token file")
	}
	data = data[len(sealMagic):]

	salt := data[:saltLength]
	data = data[saltLength:]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, "[open] chacha20poly1305.NewX")
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.New("[open] sealed token file truncated")
	}

	nonce := data[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, data[aead.NonceSize():], nil)
	if err != nil {
		return nil, errors.Wrap(err, "[open] decrypt")
	}
	return plaintext, nil
}
