package domain

import "context"

// Cipher seals and opens values as self-describing ciphertext blobs.
type Cipher interface {
	Encrypt(v any) ([]byte, error)
	Decrypt(blob []byte, out any) error
}

// EntityStore is the authoritative CRUD surface used by upstream callers.
type EntityStore interface {
	Save(t EntityType, id EntityID, rec Record) error
	Update(t EntityType, id EntityID, rec Record) error
	Load(t EntityType, id EntityID) (Record, error)
	Delete(t EntityType, id EntityID) error
	Exists(t EntityType, id EntityID) (bool, error)
	NextID(t EntityType, prefix string) (EntityID, error)
}

// Syncer mirrors writes to the replication target. Every method reports
// whether the copy happened; failures never surface to the writer.
type Syncer interface {
	SyncEntity(ctx context.Context, t EntityType, id EntityID) bool
	SyncIndex(ctx context.Context, t EntityType) bool
	SyncDeletion(ctx context.Context, t EntityType, id EntityID) bool
}
