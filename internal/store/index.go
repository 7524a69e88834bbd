package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"smilestore/internal/domain"
)

// Listing is the result of ListAll.
type Listing struct {
	Records []domain.Record
	// Skipped holds indexed ids whose blob was missing or unreadable.
	Skipped []SkippedEntry
}

// SkippedEntry explains why an indexed id was left out of a listing.
type SkippedEntry struct {
	ID  domain.EntityID
	Err error
}

// Index returns the ids recorded in t's index, in insertion order.
func (s *Store) Index(t domain.EntityType) ([]domain.EntityID, error) {
	if err := s.checkType(t); err != nil {
		return nil, err
	}
	return s.readIndex(t)
}

// ListAll loads every record named by t's index. Entries whose blob is
// missing or cannot be decrypted are skipped and reported in Skipped
// rather than failing the whole listing.
func (s *Store) ListAll(t domain.EntityType) (*Listing, error) {
	if err := s.checkType(t); err != nil {
		return nil, err
	}
	index, err := s.readIndex(t)
	if err != nil {
		return nil, err
	}

	out := &Listing{Records: make([]domain.Record, 0, len(index))}
	for _, id := range index {
		rec, err := s.Load(t, id)
		if err != nil {
			s.log.Warn().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("skipping entry while listing")
			out.Skipped = append(out.Skipped, SkippedEntry{ID: id, Err: err})
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// NextID returns prefix followed by one more than the highest numeric
// suffix seen in t's index, zero-padded to three digits. Ids without the
// prefix or with a non-numeric suffix are ignored.
//
// Allocation is atomic within the process: the highest number handed out
// is remembered, so concurrent callers never receive the same id even
// before either has saved.
func (s *Store) NextID(t domain.EntityType, prefix string) (domain.EntityID, error) {
	if err := s.checkType(t); err != nil {
		return "", err
	}
	if prefix != "" {
		if err := domain.EntityID(prefix).Validate(); err != nil {
			return "", err
		}
	}

	unlock, err := s.lockType(t)
	if err != nil {
		return "", err
	}
	defer unlock()

	index, err := s.readIndex(t)
	if err != nil {
		return "", err
	}

	key := t.String() + "/" + prefix
	highest, _ := s.marks.Load(key)
	for _, id := range index {
		rest, ok := strings.CutPrefix(id.String(), prefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	next := highest + 1
	s.marks.Store(key, next)
	return domain.FormatID(prefix, next), nil
}

// Reindex rebuilds t's index from the blobs present on disk. Ids already in
// the index keep their position; newly discovered ones are appended in
// lexical order. It returns the new index.
func (s *Store) Reindex(t domain.EntityType) ([]domain.EntityID, error) {
	if err := s.checkType(t); err != nil {
		return nil, err
	}

	unlock, err := s.lockType(t)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := s.fs.ReadDir(t.String())
	if err != nil {
		return nil, fmt.Errorf("%w: readdir %s: %v", domain.ErrStorageIO, t, err)
	}
	present := make(map[domain.EntityID]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFile || !strings.HasSuffix(name, blobExt) {
			continue
		}
		id := domain.EntityID(strings.TrimSuffix(name, blobExt))
		if id.Validate() != nil {
			continue
		}
		present[id] = true
	}

	// A corrupt index is exactly what Reindex repairs, so start over on error.
	old, err := s.readIndex(t)
	if err != nil {
		s.log.Warn().Err(err).Str("type", t.String()).Msg("discarding unreadable index")
		old = nil
	}

	rebuilt := make([]domain.EntityID, 0, len(present))
	for _, id := range old {
		if present[id] && !containsID(rebuilt, id) {
			rebuilt = append(rebuilt, id)
		}
	}
	var added []domain.EntityID
	for id := range present {
		if !containsID(rebuilt, id) {
			added = append(added, id)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	rebuilt = append(rebuilt, added...)

	if err := s.writeIndex(t, rebuilt); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("type", t.String()).
		Int("entries", len(rebuilt)).
		Int("added", len(added)).
		Int("dropped", len(old)-(len(rebuilt)-len(added))).
		Msg("index rebuilt")
	return rebuilt, nil
}

// readIndex loads t's index. A missing index file reads as empty.
func (s *Store) readIndex(t domain.EntityType) ([]domain.EntityID, error) {
	p := s.indexPath(t)
	blob, err := readFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.EntityID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageIO, p, err)
	}
	var index []domain.EntityID
	if err := s.cipher.Decrypt(blob, &index); err != nil {
		s.log.Error().Err(err).Str("path", p).Msg("index unreadable")
		return nil, fmt.Errorf("index %s: %w", t, err)
	}
	return index, nil
}

func (s *Store) writeIndex(t domain.EntityType, index []domain.EntityID) error {
	if index == nil {
		index = []domain.EntityID{}
	}
	blob, err := s.cipher.Encrypt(index)
	if err != nil {
		return err
	}
	p := s.indexPath(t)
	if err := writeFile(s.fs, p, blob); err != nil {
		s.log.Error().Err(err).Str("path", p).Msg("index write failed")
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorageIO, p, err)
	}
	return nil
}

func containsID(index []domain.EntityID, id domain.EntityID) bool {
	for _, v := range index {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(index []domain.EntityID, id domain.EntityID) []domain.EntityID {
	out := index[:0]
	for _, v := range index {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
