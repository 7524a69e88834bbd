package domain

import "errors"

var (
	// ErrEncryption is returned when a value cannot be serialized or sealed.
	ErrEncryption = errors.New("encryption failure")

	// ErrAuthentication is returned when a blob was sealed with another key,
	// has been tampered with, or is malformed.
	ErrAuthentication = errors.New("authentication failure: wrong key or corrupted ciphertext")

	// ErrStorageIO wraps filesystem read/write faults.
	ErrStorageIO = errors.New("storage i/o failure")

	// ErrInvalidEntityType is a caller bug: the type is outside the closed set.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidEntityID is a caller bug: the id is not a safe file name.
	ErrInvalidEntityID = errors.New("invalid entity id")

	// ErrNotFound is returned when no record exists for (type, id).
	ErrNotFound = errors.New("entity not found")

	// ErrReplicationUnavailable means the namenode is unreachable or replication is off.
	ErrReplicationUnavailable = errors.New("replication unavailable")

	// ErrMountFailure means the network share could not be mounted or unmounted.
	ErrMountFailure = errors.New("network share mount failure")
)
