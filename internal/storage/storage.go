// Package storage provides the read-only byte source backing a document.
// During resolution the bytes are never written; new revisions are
// serialized separately and appended.
package storage

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// Store is an immutable byte source, either a memory-mapped file or an
// in-memory buffer.
type Store struct {
	data []byte

	file *os.File
	mmap mmap.MMap
}

// Open memory-maps the file at path read-only.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "mmap")
	}

	return &Store{data: m, file: f, mmap: m}, nil
}

// FromBytes wraps an in-memory buffer. The caller must not mutate data
// afterwards.
func FromBytes(data []byte) *Store {
	return &Store{data: data}
}

// Bytes returns the underlying bytes. The slice must be treated as
// read-only.
func (s *Store) Bytes() []byte {
	return s.data
}

// Size returns the number of bytes in the store.
func (s *Store) Size() int64 {
	return int64(len(s.data))
}

// Close unmaps and closes a file-backed store; it is a no-op for buffers.
func (s *Store) Close() error {
	if s.mmap != nil {
		if err := s.mmap.Unmap(); err != nil {
			return errors.Wrap(err, "unmap")
		}
		s.mmap = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return errors.Wrap(err, "close")
		}
		s.file = nil
	}
	s.data = nil
	return nil
}
