// Package commands defines the smilestore CLI.
//
// Commands
//
//   - init          Lay out the store and report where it lives
//   - put           Create or overwrite a record from JSON
//   - get, list     Read records back as JSON
//   - delete        Remove a record and its index entry
//   - exists        Exit 0 if a record exists, 1 otherwise
//   - next-id       Print the next free id for a type
//   - reindex       Rebuild indexes from the blobs on disk
//   - sync          Mirror the store to HDFS
//   - mount         Mount the NFS export (also unmount, mount-status)
//   - keygen        Print a new ENCRYPTION_KEY
//   - seed          Load fixture records
//
// The root command resolves configuration and, for commands that touch
// records, opens the store and replication client before the handler runs.
package commands
