// Package adaptive encrypts journal payloads with an AEAD picked for
// the host: AES-GCM where the architecture has AES instructions,
// ChaCha20-Poly1305 everywhere else.
package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required key length in bytes.
const KeySize = 32

// ErrBadKeySize is returned when the key is not KeySize bytes.
var ErrBadKeySize = errors.New("adaptive: key must be 32 bytes")

// Cipher seals and opens record payloads. Ciphertexts are
// self-contained: the nonce is carried in front of the sealed data.
type Cipher interface {
	// Algorithm names the selected AEAD, for logs.
	Algorithm() string

	// Encrypt seals plaintext, binding additionalData into the tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens a ciphertext produced by Encrypt.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
}

// New returns a cipher for the given 32-byte key, choosing the AEAD
// that is fastest on this architecture.
func New(key []byte) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrBadKeySize
	}

	// Go's AES uses the hardware instructions on amd64 and arm64.
	// On architectures without them, ChaCha20 is the faster and
	// timing-safe choice.
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return newAESGCM(key)
	default:
		return newChaCha20(key)
	}
}

type sealer struct {
	name string
	aead cipher.AEAD
}

func newAESGCM(key []byte) (*sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("adaptive: aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("adaptive: gcm: %w", err)
	}
	return &sealer{name: "aes-gcm", aead: aead}, nil
}

func newChaCha20(key []byte) (*sealer, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("adaptive: chacha20poly1305: %w", err)
	}
	return &sealer{name: "chacha20-poly1305", aead: aead}, nil
}

func (s *sealer) Algorithm() string {
	return s.name
}

func (s *sealer) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (s *sealer) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < s.aead.NonceSize() {
		return nil, errors.New("adaptive: ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:s.aead.NonceSize()], ciphertext[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, sealed, additionalData)
}
