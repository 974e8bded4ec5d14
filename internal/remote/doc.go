// Package remote talks to the cluster's submit host over SSH and keeps a local
// mirror of the remote home directory.
//
// A Session owns one SSH connection and one SFTP channel opened on it. It is
// not safe for concurrent use and must be closed on every exit path; callers
// normally go through WithSession. A Mirror decides per file whether the local
// copy is already in sync by comparing size and modification time, downloads
// the files that are not, and verifies each download against a hash computed
// on the remote host.
package remote
