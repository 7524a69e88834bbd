package replication

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"

	"smilestore/internal/domain"
)

const (
	DefaultNamenodeURL  = "http://localhost:9870"
	DefaultUser         = "hadoop"
	DefaultRoot         = "/smilelink/data"
	DefaultFactor       = 2
	DefaultTimeout      = 30 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// blobExt marks the files SyncDirectory copies.
const blobExt = ".blob"

// Config describes the replication target.
type Config struct {
	Enabled     bool
	NamenodeURL string
	User        string
	Root        string
	Factor      int

	Timeout      time.Duration
	ProbeTimeout time.Duration

	// HTTP overrides the transport. Redirect following is always disabled
	// on the copy the client keeps.
	HTTP *http.Client
	// Local is where ReplicateFile and SyncDirectory read from. Defaults
	// to the host filesystem.
	Local  billy.Filesystem
	Logger zerolog.Logger
}

// Client talks WebHDFS to one namenode.
type Client struct {
	cfg       Config
	base      *url.URL
	http      *http.Client
	log       zerolog.Logger
	available atomic.Bool
}

// New builds a client and probes the namenode. A disabled or unreachable
// target yields a client whose IsAvailable reports false.
func New(ctx context.Context, cfg Config) *Client {
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	cfg.Root = path.Clean("/" + cfg.Root)
	if cfg.Factor <= 0 {
		cfg.Factor = DefaultFactor
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Local == nil {
		cfg.Local = osfs.New("/")
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTP != nil {
		cp := *cfg.HTTP
		hc = &cp
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	c := &Client{
		cfg:  cfg,
		http: hc,
		log:  cfg.Logger.With().Str("component", "replication").Logger(),
	}

	if !cfg.Enabled {
		c.log.Debug().Msg("replication disabled")
		return c
	}
	if cfg.NamenodeURL == "" {
		c.log.Warn().Msg("replication enabled but no namenode url configured")
		return c
	}
	base, err := url.Parse(strings.TrimRight(cfg.NamenodeURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		c.log.Warn().Str("namenode", cfg.NamenodeURL).Msg("invalid namenode url")
		return c
	}
	c.base = base

	if err := c.Probe(ctx); err != nil {
		c.log.Warn().Err(err).Str("namenode", cfg.NamenodeURL).Msg("namenode unreachable; replication unavailable")
	} else {
		c.log.Info().Str("namenode", cfg.NamenodeURL).Str("root", cfg.Root).Int("factor", cfg.Factor).Msg("replication available")
	}
	return c
}

// Probe checks the namenode with GETFILESTATUS on the parent of the
// replication root and records the outcome. A FileNotFoundException still
// counts as reachable.
func (c *Client) Probe(ctx context.Context) error {
	if !c.cfg.Enabled || c.base == nil {
		c.available.Store(false)
		return domain.ErrReplicationUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	_, err := c.getFileStatus(ctx, path.Dir(c.cfg.Root))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		c.available.Store(false)
		return fmt.Errorf("%w: %v", domain.ErrReplicationUnavailable, err)
	}
	c.available.Store(true)
	return nil
}

// IsAvailable reports the last probe result.
func (c *Client) IsAvailable() bool { return c.available.Load() }

// Root is the remote directory every relative path resolves under.
func (c *Client) Root() string { return c.cfg.Root }

// Factor is the replication factor sent with every upload.
func (c *Client) Factor() int { return c.cfg.Factor }

// ReplicateFile uploads localPath, read from the configured local
// filesystem, to <root>/<remoteRel>.
func (c *Client) ReplicateFile(ctx context.Context, localPath, remoteRel string) error {
	return c.ReplicateFrom(ctx, c.cfg.Local, localPath, remoteRel)
}

// ReplicateFrom uploads localPath read from fs to <root>/<remoteRel>,
// creating parent directories and overwriting any existing copy.
func (c *Client) ReplicateFrom(ctx context.Context, fs billy.Filesystem, localPath, remoteRel string) error {
	if !c.IsAvailable() {
		return domain.ErrReplicationUnavailable
	}
	data, err := util.ReadFile(fs, localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	remote := c.remotePath(remoteRel)
	if err := c.mkdirs(ctx, path.Dir(remote)); err != nil {
		return err
	}
	if err := c.create(ctx, remote, data); err != nil {
		return err
	}
	c.log.Debug().Str("local", localPath).Str("remote", remote).Int("bytes", len(data)).Msg("replicated file")
	return nil
}

// SyncDirectory uploads every regular file under localDir of the configured
// local filesystem. See SyncDirectoryFrom.
func (c *Client) SyncDirectory(ctx context.Context, localDir, remoteRelDir string) (int, error) {
	return c.SyncDirectoryFrom(ctx, c.cfg.Local, localDir, remoteRelDir)
}

// SyncDirectoryFrom uploads every regular file under localDir, keeping its
// path relative to localDir beneath remoteRelDir. Per-file failures are
// logged and skipped; the count of successful uploads is returned.
func (c *Client) SyncDirectoryFrom(ctx context.Context, fs billy.Filesystem, localDir, remoteRelDir string) (int, error) {
	if !c.IsAvailable() {
		return 0, domain.ErrReplicationUnavailable
	}

	var files []string
	err := util.Walk(fs, localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// Only finished blobs; a crashed write leaves <id>.blob.tmp-* behind.
		if info.Mode().IsRegular() && strings.HasSuffix(p, blobExt) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", localDir, err)
	}

	synced := 0
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			c.log.Warn().Err(err).Str("local", p).Msg("skipping file outside directory")
			continue
		}
		remoteRel := path.Join(remoteRelDir, filepath.ToSlash(rel))
		if err := c.ReplicateFrom(ctx, fs, p, remoteRel); err != nil {
			c.log.Warn().Err(err).Str("local", p).Str("remote", remoteRel).Msg("replication failed")
			continue
		}
		synced++
	}
	c.log.Info().Str("dir", localDir).Int("files", len(files)).Int("synced", synced).Msg("directory synced")
	return synced, nil
}

// ListFiles returns the names directly under <root>/<remoteRel>.
func (c *Client) ListFiles(ctx context.Context, remoteRel string) ([]string, error) {
	if !c.IsAvailable() {
		return nil, domain.ErrReplicationUnavailable
	}
	statuses, err := c.listStatus(ctx, c.remotePath(remoteRel))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, st.PathSuffix)
	}
	return names, nil
}

// DeleteFile removes <root>/<remoteRel>. It returns domain.ErrNotFound when
// the namenode reports nothing was deleted.
func (c *Client) DeleteFile(ctx context.Context, remoteRel string) error {
	if !c.IsAvailable() {
		return domain.ErrReplicationUnavailable
	}
	remote := c.remotePath(remoteRel)
	ok, err := c.deletePath(ctx, remote)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, remote)
	}
	c.log.Debug().Str("remote", remote).Msg("deleted remote file")
	return nil
}

func (c *Client) remotePath(rel string) string {
	return path.Join(c.cfg.Root, path.Clean("/"+rel))
}
