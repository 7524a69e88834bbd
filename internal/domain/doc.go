// Package domain defines the core data models, error kinds and contracts
// shared by the storage, replication and sync packages.
//
// It contains plain types (records, entity types, ids) and interfaces only;
// it has no dependencies on the rest of the module.
package domain
