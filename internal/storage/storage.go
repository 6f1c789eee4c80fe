package storage

import "io"

// BlobStore is the opaque file store behind medical records. Keys are
// generated by the store on Put and are the only handle callers keep.
type BlobStore interface {
	Put(r io.Reader, size int64, contentType, ext string) (string, error)
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}
