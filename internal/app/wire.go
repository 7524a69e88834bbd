package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"smilestore/internal/config"
	"smilestore/internal/crypto"
	"smilestore/internal/netshare"
	"smilestore/internal/replication"
	"smilestore/internal/services/records"
	"smilestore/internal/store"
	"smilestore/internal/syncer"
)

// Wire bundles the stores, clients and services for the CLI.
type Wire struct {
	Settings   *config.Config
	Log        zerolog.Logger
	Cipher     *crypto.Manager
	Share      *netshare.Client // nil when the share is disabled
	Mounted    bool
	BasePath   string
	Store      *store.Store
	Replicator *replication.Client
	Syncer     *syncer.Orchestrator
	Records    *records.Service
	Registry   *prometheus.Registry
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg Config) (*Wire, error) {
	if cfg.Settings == nil {
		return nil, errors.New("app: nil settings")
	}
	s := cfg.Settings
	log := cfg.Logger

	key, err := resolveKey(s.Encryption, log)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewManager(key)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("fingerprint", cipher.Fingerprint()).Msg("encryption ready")

	// Shared storage, falling back to the local path when it cannot be mounted.
	var share *netshare.Client
	mounted := false
	if s.NetShare.Enabled {
		opts := append([]netshare.Option{netshare.WithLogger(log)}, cfg.NetShare...)
		share = netshare.New(netshare.Config{
			Server:     s.NetShare.Server,
			SharePath:  s.NetShare.SharePath,
			MountPoint: s.NetShare.MountPoint,
			Options:    s.NetShare.Options,
		}, opts...)
		if err := share.Mount(ctx); err != nil {
			log.Warn().Err(err).Str("fallback", s.Storage.LocalPath).Msg("network share unavailable; using local storage")
		}
		mounted = share.IsMounted()
	}
	base := s.StoragePath(mounted)
	if err := os.MkdirAll(base, 0o700); err != nil {
		cipher.Close()
		return nil, fmt.Errorf("create storage dir %s: %w", base, err)
	}

	st, err := store.New(osfs.New(base), cipher, store.WithLogger(log))
	if err != nil {
		cipher.Close()
		return nil, err
	}
	log.Info().Str("path", base).Bool("shared", mounted).Msg("storage ready")

	repl := replication.New(ctx, replication.Config{
		Enabled:      s.Replication.Enabled,
		NamenodeURL:  s.Replication.NamenodeURL,
		User:         s.Replication.User,
		Root:         s.Replication.Root,
		Factor:       s.Replication.Factor,
		Timeout:      s.Replication.Timeout,
		ProbeTimeout: s.Replication.ProbeTimeout,
		HTTP:         cfg.HTTP,
		Local:        st.Filesystem(),
		Logger:       log,
	})

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	sync := syncer.New(s.Replication.Enabled, st, repl,
		syncer.WithLogger(log),
		syncer.WithMetrics(syncer.NewMetrics(registry)),
	)

	return &Wire{
		Settings:   s,
		Log:        log,
		Cipher:     cipher,
		Share:      share,
		Mounted:    mounted,
		BasePath:   base,
		Store:      st,
		Replicator: repl,
		Syncer:     sync,
		Records:    records.New(st, sync, log),
		Registry:   registry,
	}, nil
}

// Close wipes key material.
func (w *Wire) Close() {
	if w.Cipher != nil {
		w.Cipher.Close()
	}
}
