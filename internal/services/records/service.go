package records

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"smilestore/internal/domain"
	"smilestore/internal/store"
)

// IDField is the record field stamped with the entity id on create.
const IDField = "id"

// Store is the entity store surface the service needs.
type Store interface {
	domain.EntityStore
	ListAll(t domain.EntityType) (*store.Listing, error)
}

// Service creates, updates and deletes records and mirrors each change.
type Service struct {
	store Store
	sync  domain.Syncer
	log   zerolog.Logger
}

// New returns a service over s. sync may be nil to skip mirroring.
func New(s Store, sync domain.Syncer, log zerolog.Logger) *Service {
	return &Service{store: s, sync: sync, log: log.With().Str("component", "records").Logger()}
}

// Create allocates the next id for t's prefix, stamps it into rec and saves.
func (s *Service) Create(ctx context.Context, t domain.EntityType, rec domain.Record) (domain.EntityID, domain.Record, error) {
	id, err := s.store.NextID(t, t.Prefix())
	if err != nil {
		return "", nil, err
	}
	out := rec.Clone()
	if out == nil {
		out = domain.Record{}
	}
	out[IDField] = id.String()

	if err := s.store.Save(t, id, out); err != nil {
		return "", nil, err
	}
	s.mirror(ctx, t, id)
	s.log.Info().Str("type", t.String()).Str("id", id.String()).Msg("record created")
	return id, out, nil
}

// Put saves rec under id whether or not it exists.
func (s *Service) Put(ctx context.Context, t domain.EntityType, id domain.EntityID, rec domain.Record) error {
	out := rec.Clone()
	if out == nil {
		out = domain.Record{}
	}
	if _, ok := out[IDField]; !ok {
		out[IDField] = id.String()
	}
	if err := s.store.Save(t, id, out); err != nil {
		return err
	}
	s.mirror(ctx, t, id)
	return nil
}

// Update replaces an existing record. It returns domain.ErrNotFound when
// there is nothing to update.
func (s *Service) Update(ctx context.Context, t domain.EntityType, id domain.EntityID, rec domain.Record) error {
	ok, err := s.store.Exists(t, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, t, id)
	}
	out := rec.Clone()
	if out == nil {
		out = domain.Record{}
	}
	if _, ok := out[IDField]; !ok {
		out[IDField] = id.String()
	}
	if err := s.store.Update(t, id, out); err != nil {
		return err
	}
	s.mirror(ctx, t, id)
	s.log.Info().Str("type", t.String()).Str("id", id.String()).Msg("record updated")
	return nil
}

// Delete removes the record locally and then from the replica.
func (s *Service) Delete(ctx context.Context, t domain.EntityType, id domain.EntityID) error {
	if err := s.store.Delete(t, id); err != nil {
		return err
	}
	if s.sync != nil {
		s.sync.SyncDeletion(ctx, t, id)
	}
	s.log.Info().Str("type", t.String()).Str("id", id.String()).Msg("record deleted")
	return nil
}

// Get loads one record.
func (s *Service) Get(t domain.EntityType, id domain.EntityID) (domain.Record, error) {
	return s.store.Load(t, id)
}

// Exists reports whether a record is stored for (t, id).
func (s *Service) Exists(t domain.EntityType, id domain.EntityID) (bool, error) {
	return s.store.Exists(t, id)
}

// List loads every record of type t, reporting unreadable entries.
func (s *Service) List(t domain.EntityType) (*store.Listing, error) {
	return s.store.ListAll(t)
}

// mirror copies the entity and its index. Results are advisory.
func (s *Service) mirror(ctx context.Context, t domain.EntityType, id domain.EntityID) {
	if s.sync == nil {
		return
	}
	s.sync.SyncEntity(ctx, t, id)
	s.sync.SyncIndex(ctx, t)
}
