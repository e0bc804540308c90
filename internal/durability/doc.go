// Package durability persists store snapshots to a blob backend.
//
// A Manager owns one writer goroutine. Every flush is queued and written in
// issue order, each as a whole-value replacement of the snapshot key. Load
// reads the last written snapshot back at startup.
//
// The on-disk value is a JSON envelope:
//
//	{"format":"loctrack/snapshot/v1","checksum":"<hex>","payload":{...}}
//
// The checksum is SHA-256 over the payload bytes, prefixed with the format
// string and a null separator. A value whose checksum does not match is
// treated as corrupt.
package durability
