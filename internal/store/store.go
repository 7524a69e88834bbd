package store

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"smilestore/internal/domain"
)

const (
	blobExt   = ".blob"
	indexFile = domain.IndexName + blobExt
	dirMode   = 0o700
	blobMode  = 0o600
)

// Store persists records as encrypted files and maintains a per-type index.
type Store struct {
	fs     billy.Filesystem
	cipher domain.Cipher
	log    zerolog.Logger

	locks     *xsync.MapOf[domain.EntityType, *sync.Mutex]
	marks     *xsync.MapOf[string, uint64] // highest id number handed out per type/prefix
	fileLocks bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l.With().Str("component", "store").Logger() }
}

// WithoutFileLocks disables the cross-process advisory locks.
func WithoutFileLocks() Option {
	return func(s *Store) { s.fileLocks = false }
}

// New returns a Store over fs and initialises its directory layout.
func New(fs billy.Filesystem, cipher domain.Cipher, opts ...Option) (*Store, error) {
	s := &Store{
		fs:        fs,
		cipher:    cipher,
		log:       zerolog.Nop(),
		locks:     xsync.NewMapOf[domain.EntityType, *sync.Mutex](),
		marks:     xsync.NewMapOf[string, uint64](),
		fileLocks: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init creates one directory per entity type and an empty index for every
// type that lacks one. It is safe to call on an existing store.
func (s *Store) Init() error {
	if s.fileLocks {
		if err := s.fs.MkdirAll(locksDir, dirMode); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", domain.ErrStorageIO, locksDir, err)
		}
	}
	for _, t := range domain.EntityTypes() {
		if err := s.fs.MkdirAll(t.String(), dirMode); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", domain.ErrStorageIO, t, err)
		}
		idx := s.fs.Join(t.String(), indexFile)
		if _, err := s.fs.Stat(idx); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: stat %s: %v", domain.ErrStorageIO, idx, err)
		}
		if err := s.writeIndex(t, []domain.EntityID{}); err != nil {
			return err
		}
		s.log.Debug().Str("type", t.String()).Msg("created empty index")
	}
	return nil
}

// Filesystem returns the filesystem the store writes to.
func (s *Store) Filesystem() billy.Filesystem { return s.fs }

// TypeDir returns the directory holding t's blobs, relative to the store root.
func (s *Store) TypeDir(t domain.EntityType) (string, error) {
	if err := s.checkType(t); err != nil {
		return "", err
	}
	return t.String(), nil
}

// EntityPath returns the blob path for (t, id), relative to the store root.
func (s *Store) EntityPath(t domain.EntityType, id domain.EntityID) (string, error) {
	if err := s.check(t, id); err != nil {
		return "", err
	}
	return s.entityPath(t, id), nil
}

// IndexPath returns the index blob path for t, relative to the store root.
func (s *Store) IndexPath(t domain.EntityType) (string, error) {
	if err := s.checkType(t); err != nil {
		return "", err
	}
	return s.indexPath(t), nil
}

// Save encrypts rec and writes it to <t>/<id>.blob, then adds id to the
// index if absent. Saving the same id twice overwrites the record and
// leaves a single index entry.
func (s *Store) Save(t domain.EntityType, id domain.EntityID, rec domain.Record) error {
	if err := s.check(t, id); err != nil {
		return err
	}
	blob, err := s.cipher.Encrypt(rec)
	if err != nil {
		s.log.Error().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("encrypt failed")
		return err
	}

	unlock, err := s.lockType(t)
	if err != nil {
		return err
	}
	defer unlock()

	index, err := s.readIndex(t)
	if err != nil {
		return err
	}

	p := s.entityPath(t, id)
	if err := writeFile(s.fs, p, blob); err != nil {
		s.log.Error().Err(err).Str("path", p).Msg("write failed")
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorageIO, p, err)
	}

	if containsID(index, id) {
		return nil
	}
	return s.writeIndex(t, append(index, id))
}

// Update is Save for an existing id.
func (s *Store) Update(t domain.EntityType, id domain.EntityID, rec domain.Record) error {
	return s.Save(t, id, rec)
}

// Load reads and decrypts the record for (t, id).
//
// It returns domain.ErrNotFound when no file exists, domain.ErrAuthentication
// when the blob cannot be opened and domain.ErrStorageIO on read faults.
func (s *Store) Load(t domain.EntityType, id domain.EntityID) (domain.Record, error) {
	if err := s.check(t, id); err != nil {
		return nil, err
	}
	p := s.entityPath(t, id)
	blob, err := readFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, t, id)
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", p).Msg("read failed")
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageIO, p, err)
	}

	var rec domain.Record
	if err := s.cipher.Decrypt(blob, &rec); err != nil {
		s.log.Warn().Err(err).Str("path", p).Msg("decrypt failed")
		return nil, fmt.Errorf("%s/%s: %w", t, id, err)
	}
	return rec, nil
}

// Delete removes the record file and its index entry. It returns
// domain.ErrNotFound when the file does not exist.
func (s *Store) Delete(t domain.EntityType, id domain.EntityID) error {
	if err := s.check(t, id); err != nil {
		return err
	}

	unlock, err := s.lockType(t)
	if err != nil {
		return err
	}
	defer unlock()

	p := s.entityPath(t, id)
	if _, err := s.fs.Stat(p); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, t, id)
	} else if err != nil {
		return fmt.Errorf("%w: stat %s: %v", domain.ErrStorageIO, p, err)
	}

	index, err := s.readIndex(t)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil {
		s.log.Error().Err(err).Str("path", p).Msg("remove failed")
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorageIO, p, err)
	}
	if !containsID(index, id) {
		return nil
	}
	return s.writeIndex(t, removeID(index, id))
}

// Exists reports whether a blob is present for (t, id). It does not decrypt.
func (s *Store) Exists(t domain.EntityType, id domain.EntityID) (bool, error) {
	if err := s.check(t, id); err != nil {
		return false, err
	}
	p := s.entityPath(t, id)
	_, err := s.fs.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %v", domain.ErrStorageIO, p, err)
	}
}

func (s *Store) entityPath(t domain.EntityType, id domain.EntityID) string {
	return s.fs.Join(t.String(), id.String()+blobExt)
}

func (s *Store) indexPath(t domain.EntityType) string {
	return s.fs.Join(t.String(), indexFile)
}

func (s *Store) checkType(t domain.EntityType) error {
	if t.Valid() {
		return nil
	}
	err := fmt.Errorf("%w: %q", domain.ErrInvalidEntityType, t.String())
	s.log.Error().Err(err).Msg("caller used an unknown entity type")
	return err
}

func (s *Store) check(t domain.EntityType, id domain.EntityID) error {
	if err := s.checkType(t); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		s.log.Error().Err(err).Str("type", t.String()).Msg("caller used an unsafe entity id")
		return err
	}
	return nil
}

// Compile-time assertion that Store implements domain.EntityStore.
var _ domain.EntityStore = (*Store)(nil)
