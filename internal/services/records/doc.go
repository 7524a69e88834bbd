// Package records is the write path upstream callers use.
//
// Every mutation goes to the entity store first and is then mirrored through
// the syncer. The store is authoritative: a failed mirror is logged by the
// syncer and never fails the write.
package records
