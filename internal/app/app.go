package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"smilestore/internal/config"
	"smilestore/internal/crypto"
)

// ErrMissingKey is returned when no encryption key is configured and an
// ephemeral key was not allowed.
var ErrMissingKey = errors.New("no encryption key configured")

// resolveKey returns the configured key. Without one it fails, unless
// ephemeral keys are allowed, in which case a random key is generated and
// a warning is logged: data written with it is unreadable after exit.
func resolveKey(enc config.Encryption, log zerolog.Logger) (crypto.Key, error) {
	if enc.Key != "" {
		k, err := crypto.ParseKey(enc.Key)
		if err != nil {
			return crypto.Key{}, fmt.Errorf("%s: %w", config.EnvName(config.KeyEncryptionKey), err)
		}
		return k, nil
	}
	if !enc.AllowEphemeral {
		return crypto.Key{}, fmt.Errorf("%w: set %s (generate one with `smilestore keygen`)",
			ErrMissingKey, config.EnvName(config.KeyEncryptionKey))
	}
	k, err := crypto.GenerateKey()
	if err != nil {
		return crypto.Key{}, err
	}
	log.Warn().Str("fingerprint", crypto.Fingerprint(k)).
		Msg("using an ephemeral encryption key; records written now cannot be read after exit")
	return k, nil
}
