// Package store provides the encrypted, file-per-record entity store.
//
// Every record lives in its own sealed blob and every entity type keeps an
// encrypted index of the ids it holds:
//
//	<base>/<entity_type>/<entity_id>.blob
//	<base>/<entity_type>/index.blob
//
// The store works on a billy.Filesystem: osfs rooted at the data path in
// production (local disk or a mounted network share), memfs in tests.
// Blobs are written through a temp file and renamed into place, so readers
// never observe a partially written file.
//
// Index updates and id allocation are read-modify-write sequences. They run
// under a per-type mutex and, on filesystems that support it, an advisory
// file lock in <base>/.locks so that several processes sharing one directory
// do not lose each other's index entries.
package store
