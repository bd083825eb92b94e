// Package credcipher encrypts Integration provider credentials at rest
// using nacl/secretbox, keyed by a server-held secret. This is narrow
// enough not to constitute an auth service: it only ever decrypts
// credentials already owned by the tenant making the request.
package credcipher

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

const keySize = 32
const nonceSize = 24

// ErrInvalidKeySize is returned when the configured secret is not 32 bytes.
var ErrInvalidKeySize = errors.New("credcipher: key must be 32 bytes")

// ErrDecryptFailed is returned when a ciphertext fails authentication.
var ErrDecryptFailed = errors.New("credcipher: decryption failed")

// Cipher encrypts and decrypts domain.Credentials blobs.
type Cipher struct {
	key [keySize]byte
}

// New builds a Cipher from a 32-byte secret, typically loaded from the
// CREDENTIALS_ENCRYPTION_KEY environment variable.
func New(secret []byte) (*Cipher, error) {
	if len(secret) != keySize {
		return nil, ErrInvalidKeySize
	}
	c := &Cipher{}
	copy(c.key[:], secret)
	return c, nil
}

// Encrypt serializes creds to JSON and seals it with a random nonce
// prepended to the ciphertext.
func (c *Cipher) Encrypt(creds domain.Credentials) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &c.key), nil
}

// Decrypt reverses Encrypt, returning ErrDecryptFailed if the box does not
// authenticate (wrong key, or tampered/corrupt ciphertext).
func (c *Cipher) Decrypt(encrypted []byte) (domain.Credentials, error) {
	var creds domain.Credentials
	if len(encrypted) < nonceSize {
		return creds, ErrDecryptFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], encrypted[:nonceSize])

	plaintext, ok := secretbox.Open(nil, encrypted[nonceSize:], &nonce, &c.key)
	if !ok {
		return creds, ErrDecryptFailed
	}

	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, err
	}
	return creds, nil
}
