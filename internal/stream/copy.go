// Package stream provides the bounded-chunk copy loop shared by the relay
// and file delivery paths.
package stream

import (
	"errors"
	"io"
	"net/http"
	"sync/atomic"
)

// DefaultChunkSize is the read buffer size used when none is configured.
const DefaultChunkSize = 32 * 1024

// Counter tracks bytes delivered to a client. It is safe for concurrent use.
type Counter struct {
	n atomic.Uint64
}

// Add records n delivered bytes.
func (c *Counter) Add(n int) {
	c.n.Add(uint64(n))
}

// Load returns the number of bytes delivered so far.
func (c *Counter) Load() uint64 {
	return c.n.Load()
}

// Copy streams src into dst one chunk at a time, flushing after every write
// when dst supports it so that a slow client stalls the next read instead of
// letting data queue up in memory. Every successfully written byte is added
// to counter, which may be nil. Reaching io.EOF on src is not an error.
func Copy(dst io.Writer, src io.Reader, chunkSize int, counter *Counter) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	flusher, canFlush := dst.(http.Flusher)

	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
				if counter != nil {
					counter.Add(nw)
				}
			}
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, rerr
		}
	}
}
