// Package replication mirrors encrypted blobs to an HDFS cluster through the
// WebHDFS REST API.
//
// The client is constructed once with a namenode URL, a remote root and a
// replication factor. At construction it probes the namenode; if the probe
// fails, or replication is disabled, every operation returns
// domain.ErrReplicationUnavailable without touching the network.
//
// Supported operations:
//   - ReplicateFile / ReplicateFrom: create parent dirs, then upload one file
//     with overwrite and the configured replication factor.
//   - SyncDirectory / SyncDirectoryFrom: upload every regular file under a
//     local directory, returning the number that succeeded.
//   - ListFiles: names directly under a remote directory.
//   - DeleteFile: remove one remote file.
//
// Uploads use the two-step CREATE exchange: the namenode answers with a
// redirect to a datanode, and the bytes are PUT to that location. Remote
// failures are decoded from the RemoteException JSON body into *RemoteError.
//
// Local bytes are read through a billy.Filesystem so the same code serves an
// on-disk store and an in-memory one.
package replication
