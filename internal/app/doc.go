// Package app wires application dependencies for the CLI.
//
// It resolves the encryption key, mounts the network share when enabled
// (falling back to local storage), opens the entity store, probes the
// replication target and builds the syncer and records service, exposing
// them via the Wire struct for commands to use.
package app
