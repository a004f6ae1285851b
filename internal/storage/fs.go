// Package storage provides filesystem access for downloadable files and the
// background removal of files once they have been delivered.
package storage

import (
	"io"
	"io/fs"
	"os"
)

// File is an open file being streamed to a client.
type File interface {
	io.Reader
	io.Closer
}

// FS is the set of filesystem operations the relay performs.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (File, error)
	Remove(name string) error
}

// OSFS implements FS on the host filesystem.
type OSFS struct{}

// NewOSFS returns the host filesystem.
func NewOSFS() FS {
	return OSFS{}
}

func (OSFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OSFS) Open(name string) (File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OSFS) Remove(name string) error {
	return os.Remove(name)
}
