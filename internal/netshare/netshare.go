// Package netshare mounts an NFS export at a local mount point so the entity
// store can live on shared storage.
//
// Mounting is a privileged host operation. The package never parses the
// output of mount(8): mount state comes from a MountTable, by default
// /proc/self/mountinfo, and the mount itself is issued through a Mounter.
// Both are injectable for tests.
package netshare

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"smilestore/internal/domain"
)

const (
	DefaultSharePath  = "/eData"
	DefaultMountPoint = "/mnt/nfs"
)

// Config names the export and where it is mounted.
type Config struct {
	Server     string
	SharePath  string
	MountPoint string
	// Options is passed to mount as -o when non-empty.
	Options string
}

// Source is the server:share string handed to mount.
func (c Config) Source() string { return c.Server + ":" + c.SharePath }

// Mount is one entry of the host mount table.
type Mount struct {
	Source     string
	MountPoint string
	FSType     string
}

// MountTable lists active mounts.
type MountTable interface {
	Mounts() ([]Mount, error)
}

// Mounter performs the mount and unmount system operations.
type Mounter interface {
	Mount(ctx context.Context, fstype, source, target, options string) error
	Unmount(ctx context.Context, target string) error
}

// Info summarises the client's target and current state.
type Info struct {
	Server     string `json:"server"`
	SharePath  string `json:"share_path"`
	MountPoint string `json:"mount_point"`
	Mounted    bool   `json:"mounted"`
}

// Client manages a single NFS mount.
type Client struct {
	cfg     Config
	table   MountTable
	mounter Mounter
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMountTable replaces the mount table.
func WithMountTable(t MountTable) Option { return func(c *Client) { c.table = t } }

// WithMounter replaces the mounter.
func WithMounter(m Mounter) Option { return func(c *Client) { c.mounter = m } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("component", "netshare").Logger() }
}

// New returns a client for cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.SharePath == "" {
		cfg.SharePath = DefaultSharePath
	}
	if cfg.MountPoint == "" {
		cfg.MountPoint = DefaultMountPoint
	}
	cfg.MountPoint = filepath.Clean(cfg.MountPoint)

	c := &Client{
		cfg:     cfg,
		table:   ProcMountTable{},
		mounter: ExecMounter{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsMounted reports whether the mount point appears in the mount table.
// An unreadable table counts as not mounted.
func (c *Client) IsMounted() bool {
	mounts, err := c.table.Mounts()
	if err != nil {
		c.log.Warn().Err(err).Msg("reading mount table failed")
		return false
	}
	for _, m := range mounts {
		if filepath.Clean(m.MountPoint) == c.cfg.MountPoint {
			return true
		}
	}
	return false
}

// Mount mounts the export if it is not mounted already. The mount point
// is created first. There is no retry; failures wrap domain.ErrMountFailure.
func (c *Client) Mount(ctx context.Context) error {
	if c.IsMounted() {
		c.log.Debug().Str("mount_point", c.cfg.MountPoint).Msg("already mounted")
		return nil
	}
	if c.cfg.Server == "" {
		return fmt.Errorf("%w: no server configured", domain.ErrMountFailure)
	}
	if err := os.MkdirAll(c.cfg.MountPoint, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", domain.ErrMountFailure, c.cfg.MountPoint, err)
	}
	if err := c.mounter.Mount(ctx, "nfs", c.cfg.Source(), c.cfg.MountPoint, c.cfg.Options); err != nil {
		c.log.Error().Err(err).Str("source", c.cfg.Source()).Str("mount_point", c.cfg.MountPoint).Msg("mount failed")
		return fmt.Errorf("%w: %s on %s: %v", domain.ErrMountFailure, c.cfg.Source(), c.cfg.MountPoint, err)
	}
	c.log.Info().Str("source", c.cfg.Source()).Str("mount_point", c.cfg.MountPoint).Msg("share mounted")
	return nil
}

// Unmount detaches the share. It is a no-op when nothing is mounted.
func (c *Client) Unmount(ctx context.Context) error {
	if !c.IsMounted() {
		return nil
	}
	if err := c.mounter.Unmount(ctx, c.cfg.MountPoint); err != nil {
		c.log.Error().Err(err).Str("mount_point", c.cfg.MountPoint).Msg("unmount failed")
		return fmt.Errorf("%w: unmount %s: %v", domain.ErrMountFailure, c.cfg.MountPoint, err)
	}
	c.log.Info().Str("mount_point", c.cfg.MountPoint).Msg("share unmounted")
	return nil
}

// Info returns the configured target and whether it is mounted now.
func (c *Client) Info() Info {
	return Info{
		Server:     c.cfg.Server,
		SharePath:  c.cfg.SharePath,
		MountPoint: c.cfg.MountPoint,
		Mounted:    c.IsMounted(),
	}
}
