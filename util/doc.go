// Package util holds small helpers shared by configuration and the HTTP edge:
// human-readable size parsing, secret masking and object path cleanup.
package util
