package domain

import (
	"fmt"
	"regexp"
	"sort"
)

// Record is one opaque domain entity instance. Values must be JSON-compatible.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// EntityType names one storage namespace.
type EntityType string

// The closed set of entity types.
const (
	Children       EntityType = "children"
	Sponsors       EntityType = "sponsors"
	Sponsorships   EntityType = "sponsorships"
	Deliveries     EntityType = "deliveries"
	GiftRequests   EntityType = "gift-requests"
	DeliveryPoints EntityType = "delivery-points"
	Events         EntityType = "events"
	Administrators EntityType = "administrators"
)

var entityPrefixes = map[EntityType]string{
	Children:       "N",
	Sponsors:       "P",
	Sponsorships:   "AP",
	Deliveries:     "E",
	GiftRequests:   "SR",
	DeliveryPoints: "PE",
	Events:         "EV",
	Administrators: "A",
}

// String returns the string form of the entity type.
func (t EntityType) String() string { return string(t) }

// Valid reports whether t belongs to the closed set.
func (t EntityType) Valid() bool {
	_, ok := entityPrefixes[t]
	return ok
}

// Prefix returns the id prefix for t, or "" for an unknown type.
func (t EntityType) Prefix() string { return entityPrefixes[t] }

// EntityTypes returns every entity type in a stable order.
func EntityTypes() []EntityType {
	out := make([]EntityType, 0, len(entityPrefixes))
	for t := range entityPrefixes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseEntityType validates s against the closed set.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
	return t, nil
}

// EntityID identifies a record within its entity type, e.g. "N001".
type EntityID string

// String returns the string form of the id.
func (id EntityID) String() string { return string(id) }

// IndexName is reserved for the per-type index file.
const IndexName = "index"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks that id is safe to use as a file name.
func (id EntityID) Validate() error {
	if !idPattern.MatchString(string(id)) || string(id) == IndexName {
		return fmt.Errorf("%w: %q", ErrInvalidEntityID, string(id))
	}
	return nil
}

// FormatID builds "<prefix><n>" with n zero-padded to at least three digits.
func FormatID(prefix string, n uint64) EntityID {
	return EntityID(fmt.Sprintf("%s%03d", prefix, n))
}
