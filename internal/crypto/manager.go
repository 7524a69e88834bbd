package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"smilestore/internal/domain"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	envelopeVersion = 1
)

// envelope is the on-disk JSON structure holding the sealed payload.
type envelope struct {
	V     int    `json:"v"`
	TS    int64  `json:"ts"`
	Nonce []byte `json:"nonce"`
	CT    []byte `json:"ct"`
}

// Manager seals and opens values with a single key fixed for its lifetime.
type Manager struct {
	key  Key
	aead cipher.AEAD
	now  func() time.Time
}

// NewManager returns a Manager for key.
func NewManager(key Key) (*Manager, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncryption, err)
	}
	return &Manager{key: key, aead: aead, now: time.Now}, nil
}

// Fingerprint identifies the manager's key without revealing it.
func (m *Manager) Fingerprint() string { return Fingerprint(m.key) }

// Encrypt serializes v as JSON and seals it into a fresh envelope.
func (m *Manager) Encrypt(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", domain.ErrEncryption, err)
	}
	defer Wipe(raw)

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", domain.ErrEncryption, err)
	}
	ts := m.now().Unix()
	ct := m.aead.Seal(nil, nonce, raw, additionalData(envelopeVersion, ts))

	blob, err := json.Marshal(envelope{V: envelopeVersion, TS: ts, Nonce: nonce, CT: ct})
	if err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", domain.ErrEncryption, err)
	}
	return blob, nil
}

// Decrypt opens blob and unmarshals the plaintext into out.
//
// Any malformed, tampered or foreign-key blob fails with domain.ErrAuthentication.
func (m *Manager) Decrypt(blob []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return fmt.Errorf("%w: malformed envelope", domain.ErrAuthentication)
	}
	if env.V != envelopeVersion {
		return fmt.Errorf("%w: unsupported envelope version %d", domain.ErrAuthentication, env.V)
	}
	if len(env.Nonce) != m.aead.NonceSize() {
		return fmt.Errorf("%w: bad nonce size", domain.ErrAuthentication)
	}

	pt, err := m.aead.Open(nil, env.Nonce, env.CT, additionalData(env.V, env.TS))
	if err != nil {
		return fmt.Errorf("%w", domain.ErrAuthentication)
	}
	defer Wipe(pt)

	if err := json.Unmarshal(pt, out); err != nil {
		return fmt.Errorf("%w: payload: %v", domain.ErrAuthentication, err)
	}
	return nil
}

// EncryptRecord seals a record.
func (m *Manager) EncryptRecord(rec domain.Record) ([]byte, error) { return m.Encrypt(rec) }

// DecryptRecord opens a blob holding a record.
func (m *Manager) DecryptRecord(blob []byte) (domain.Record, error) {
	var rec domain.Record
	if err := m.Decrypt(blob, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Close wipes the key held by the manager. The manager must not be used afterwards.
func (m *Manager) Close() {
	Wipe(m.key[:])
}

func additionalData(v int, ts int64) []byte {
	ad := make([]byte, 9)
	ad[0] = byte(v)
	binary.BigEndian.PutUint64(ad[1:], uint64(ts))
	return ad
}

// Compile-time assertion that Manager implements domain.Cipher.
var _ domain.Cipher = (*Manager)(nil)
