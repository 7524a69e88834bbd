// Package main runs an in-memory WebHDFS namenode used by smilestore during
// development and tests. It accepts the requests the replication client
// makes and keeps every uploaded blob in memory.
//
// HTTP API (all under /webhdfs/v1/{path})
//
//	GET ?op=GETFILESTATUS
//	    Status of a file or directory, or 404 FileNotFoundException.
//
//	PUT ?op=MKDIRS
//	    Create the directory and any missing parents.
//
//	PUT ?op=CREATE&overwrite=true&replication=N
//	    Answer 307 with a Location on this same server carrying data=true.
//	    A PUT of the bytes to that location stores the file and answers 201.
//
//	GET ?op=LISTSTATUS
//	    Entries directly under a directory, sorted by name.
//
//	DELETE ?op=DELETE[&recursive=true]
//	    Remove a file or directory. {"boolean": false} when nothing existed.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Errors use the WebHDFS RemoteException JSON shape.
//   - A lightweight access log records method, path, op, remote, status,
//     bytes and duration for each request.
//   - The default listen address is :9870, the namenode HTTP port.
//
// It never sees plaintext: the blobs it stores are already encrypted.
package main
