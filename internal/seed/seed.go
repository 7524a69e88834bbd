// Package seed loads YAML fixtures into the entity store.
//
// A fixture file maps entity type names to lists of records; each record
// must carry a string "id" field:
//
//	children:
//	  - id: N001
//	    name: Sofía Martínez
//
// The embedded Sample set is what a fresh development store starts with.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"smilestore/internal/domain"
)

//go:embed sample.yaml
var sample []byte

// Entry is one fixture record.
type Entry struct {
	Type   domain.EntityType
	ID     domain.EntityID
	Record domain.Record
}

// Target receives fixture records.
type Target interface {
	Put(ctx context.Context, t domain.EntityType, id domain.EntityID, rec domain.Record) error
	Exists(t domain.EntityType, id domain.EntityID) (bool, error)
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// Sample returns the embedded fixture set.
func Sample() ([]Entry, error) {
	return Load(bytes.NewReader(sample))
}

// Load parses a fixture document. Types are visited in their sorted order
// and records in file order.
func Load(r io.Reader) ([]Entry, error) {
	var doc map[string][]map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	for name := range doc {
		if _, err := domain.ParseEntityType(name); err != nil {
			return nil, err
		}
	}

	var out []Entry
	for _, t := range domain.EntityTypes() {
		for i, raw := range doc[t.String()] {
			idv, ok := raw["id"].(string)
			if !ok || idv == "" {
				return nil, fmt.Errorf("%s[%d]: missing string id", t, i)
			}
			id := domain.EntityID(idv)
			if err := id.Validate(); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			out = append(out, Entry{Type: t, ID: id, Record: domain.Record(raw)})
		}
	}
	return out, nil
}

// Apply writes every entry to target. With skipExisting, ids already present
// are left untouched.
func Apply(ctx context.Context, target Target, entries []Entry, skipExisting bool, log zerolog.Logger) (Result, error) {
	var res Result
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if skipExisting {
			ok, err := target.Exists(e.Type, e.ID)
			if err != nil {
				return res, err
			}
			if ok {
				res.Skipped++
				log.Debug().Str("type", e.Type.String()).Str("id", e.ID.String()).Msg("fixture exists, skipping")
				continue
			}
		}
		if err := target.Put(ctx, e.Type, e.ID, e.Record); err != nil {
			return res, fmt.Errorf("%s/%s: %w", e.Type, e.ID, err)
		}
		res.Created++
		log.Info().Str("type", e.Type.String()).Str("id", e.ID.String()).Msg("fixture saved")
	}
	return res, nil
}
