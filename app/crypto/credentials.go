// Package crypto seals gateway credentials at rest and opens them for the duration of a call.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey        = errors.New("credentials key must be 32 bytes, base64 encoded")
	ErrMalformedCipher   = errors.New("malformed credential ciphertext")
	ErrCredentialMissing = errors.New("credential parameter missing")
)

// Credential is the decrypted parameter map of one gateway configuration.
type Credential map[string]string

// Get returns a required parameter.
func (c Credential) Get(name string) (string, error) {
	value, ok := c[name]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrCredentialMissing, name)
	}
	return value, nil
}

type CredentialCipher struct {
	key []byte
}

func NewCredentialCipher(base64Key string) (*CredentialCipher, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &CredentialCipher{key: key}, nil
}

// Seal encrypts the parameter map. Output is base64(nonce || ciphertext).
func (c *CredentialCipher) Seal(credential Credential) (string, error) {
	plaintext, err := json.Marshal(credential)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *CredentialCipher) Open(sealed string) (Credential, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrMalformedCipher
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformedCipher
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCipher, err)
	}

	credential := Credential{}
	if err := json.Unmarshal(plaintext, &credential); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCipher, err)
	}
	return credential, nil
}
