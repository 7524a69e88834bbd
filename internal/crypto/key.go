package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	KeyBytes  = chacha20poly1305.KeySize
	SaltBytes = 16
)

// ErrInvalidKey is returned when key material does not decode to KeyBytes bytes.
var ErrInvalidKey = errors.New("invalid encryption key")

// Key is a symmetric AEAD key.
type Key [KeyBytes]byte

// String returns the key in the form ParseKey accepts.
func (k Key) String() string { return B64(k[:]) }

// ParseKey decodes a base64 key (standard or URL alphabet, padded or raw).
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := decodeB64(s)
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	defer Wipe(b)
	if len(b) != KeyBytes {
		return k, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(b), KeyBytes)
	}
	copy(k[:], b)
	return k, nil
}

// GenerateKey returns a fresh random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, err
	}
	return k, nil
}

// NewSalt returns SaltBytes random bytes for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// ParseSalt decodes a salt printed with B64.
func ParseSalt(s string) ([]byte, error) {
	b, err := decodeB64(s)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	if len(b) != SaltBytes {
		return nil, fmt.Errorf("invalid salt: got %d bytes, want %d", len(b), SaltBytes)
	}
	return b, nil
}

// DeriveKey derives a key from a passphrase and salt using scrypt.
func DeriveKey(passphrase string, salt []byte) (Key, error) {
	var k Key
	if len(salt) != SaltBytes {
		return k, errors.New("invalid salt size")
	}
	N, r, p := scryptParamsDefault()
	raw, err := scrypt.Key([]byte(passphrase), salt, N, r, p, KeyBytes)
	if err != nil {
		return k, err
	}
	defer Wipe(raw)
	copy(k[:], raw)
	return k, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
