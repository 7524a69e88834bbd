// Package syncer decides when a local write is mirrored to the replication
// target and drives the copy. Replication is best effort: failures are
// logged and counted, never returned to the writer.
package syncer

import (
	"context"
	"errors"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smilestore/internal/domain"
)

// Source exposes where the entity store keeps its blobs.
type Source interface {
	Filesystem() billy.Filesystem
	TypeDir(t domain.EntityType) (string, error)
	EntityPath(t domain.EntityType, id domain.EntityID) (string, error)
	IndexPath(t domain.EntityType) (string, error)
}

// Replicator copies local files to the remote target.
type Replicator interface {
	IsAvailable() bool
	ReplicateFrom(ctx context.Context, fs billy.Filesystem, localPath, remoteRel string) error
	SyncDirectoryFrom(ctx context.Context, fs billy.Filesystem, localDir, remoteRelDir string) (int, error)
	DeleteFile(ctx context.Context, remoteRel string) error
}

// Orchestrator mirrors entity and index blobs when replication is enabled.
type Orchestrator struct {
	enabled bool
	source  Source
	repl    Replicator
	log     zerolog.Logger
	metrics *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l.With().Str("component", "syncer").Logger() }
}

// WithMetrics sets the counters to update.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New returns an orchestrator. repl may be nil when replication is not
// configured at all.
func New(enabled bool, source Source, repl Replicator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		enabled: enabled,
		source:  source,
		repl:    repl,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// Active reports whether sync calls will reach the replicator.
func (o *Orchestrator) Active() bool {
	return o.enabled && o.repl != nil && o.repl.IsAvailable()
}

// Metrics returns the counters this orchestrator updates.
func (o *Orchestrator) Metrics() *Metrics { return o.metrics }

// SyncEntity mirrors <t>/<id>.blob. It returns false without any network
// call when replication is disabled or unavailable.
func (o *Orchestrator) SyncEntity(ctx context.Context, t domain.EntityType, id domain.EntityID) bool {
	if !o.Active() {
		o.count(opEntity, resultSkipped)
		return false
	}
	l := o.opLogger(opEntity).With().Str("type", t.String()).Str("id", id.String()).Logger()

	local, err := o.source.EntityPath(t, id)
	if err != nil {
		return o.fail(l, opEntity, err)
	}
	if err := o.repl.ReplicateFrom(ctx, o.source.Filesystem(), local, remoteRel(local)); err != nil {
		return o.fail(l, opEntity, err)
	}
	o.metrics.Files.Inc()
	o.count(opEntity, resultOK)
	l.Debug().Msg("entity replicated")
	return true
}

// SyncIndex mirrors <t>/index.blob.
func (o *Orchestrator) SyncIndex(ctx context.Context, t domain.EntityType) bool {
	if !o.Active() {
		o.count(opIndex, resultSkipped)
		return false
	}
	l := o.opLogger(opIndex).With().Str("type", t.String()).Logger()

	local, err := o.source.IndexPath(t)
	if err != nil {
		return o.fail(l, opIndex, err)
	}
	if err := o.repl.ReplicateFrom(ctx, o.source.Filesystem(), local, remoteRel(local)); err != nil {
		return o.fail(l, opIndex, err)
	}
	o.metrics.Files.Inc()
	o.count(opIndex, resultOK)
	l.Debug().Msg("index replicated")
	return true
}

// SyncAllEntities mirrors every file in t's directory and returns how many
// were copied.
func (o *Orchestrator) SyncAllEntities(ctx context.Context, t domain.EntityType) int {
	if !o.Active() {
		o.count(opAllEntities, resultSkipped)
		return 0
	}
	l := o.opLogger(opAllEntities).With().Str("type", t.String()).Logger()

	dir, err := o.source.TypeDir(t)
	if err != nil {
		o.fail(l, opAllEntities, err)
		return 0
	}
	n, err := o.repl.SyncDirectoryFrom(ctx, o.source.Filesystem(), dir, remoteRel(dir))
	if n > 0 {
		o.metrics.Files.Add(float64(n))
	}
	if err != nil {
		o.fail(l, opAllEntities, err)
		return n
	}
	o.count(opAllEntities, resultOK)
	l.Info().Int("files", n).Msg("type synced")
	return n
}

// SyncAll runs SyncAllEntities for every entity type. Types that fail
// report zero; an inactive orchestrator returns an empty map.
func (o *Orchestrator) SyncAll(ctx context.Context) map[domain.EntityType]int {
	if !o.Active() {
		o.count(opAllEntities, resultSkipped)
		return map[domain.EntityType]int{}
	}
	out := make(map[domain.EntityType]int, len(domain.EntityTypes()))
	for _, t := range domain.EntityTypes() {
		out[t] = o.SyncAllEntities(ctx, t)
	}
	return out
}

// SyncDeletion removes the remote copy of <t>/<id>.blob and re-mirrors the
// index. A remote copy that is already gone counts as success.
func (o *Orchestrator) SyncDeletion(ctx context.Context, t domain.EntityType, id domain.EntityID) bool {
	if !o.Active() {
		o.count(opDeletion, resultSkipped)
		return false
	}
	l := o.opLogger(opDeletion).With().Str("type", t.String()).Str("id", id.String()).Logger()

	local, err := o.source.EntityPath(t, id)
	if err != nil {
		return o.fail(l, opDeletion, err)
	}
	if err := o.repl.DeleteFile(ctx, remoteRel(local)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return o.fail(l, opDeletion, err)
	}
	o.count(opDeletion, resultOK)
	l.Debug().Msg("remote copy removed")
	return o.SyncIndex(ctx, t)
}

func (o *Orchestrator) opLogger(op string) zerolog.Logger {
	return o.log.With().Str("op", op).Str("op_id", uuid.NewString()).Logger()
}

func (o *Orchestrator) fail(l zerolog.Logger, op string, err error) bool {
	o.count(op, resultFailed)
	l.Warn().Err(err).Msg("sync failed")
	return false
}

func (o *Orchestrator) count(op, result string) {
	o.metrics.Operations.WithLabelValues(op, result).Inc()
}

// remoteRel maps a store-relative local path onto the remote layout, which
// mirrors it under the replication root.
func remoteRel(local string) string {
	return path.Clean(local)
}

// Compile-time assertion that Orchestrator implements domain.Syncer.
var _ domain.Syncer = (*Orchestrator)(nil)
