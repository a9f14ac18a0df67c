// Package journal persists contention records to append-only segment
// files.
//
// Each segment starts with magic bytes, carries length-prefixed
// CRC32-checked frames, and is finalized with a SHA-256 trailer when
// rotated or closed. Synchronizer class names are written once per
// segment as dictionary frames and referenced by 64-bit hash from the
// record frames, which keeps repeated contention on the same class
// cheap. Record payloads can optionally be encrypted at rest.
package journal
