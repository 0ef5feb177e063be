// Package iohelper reads HTTP response bodies under a size cap and releases
// connections back to the pool.
package iohelper

import (
	"io"
)

// DefaultMaxBodySize caps probe response bodies (1MB). Error signatures
// appear early in a page; the cap keeps hostile targets from exhausting memory.
const DefaultMaxBodySize int64 = 1024 * 1024

// drainLimit bounds how much unread body DrainAndClose discards.
const drainLimit = 64 * 1024

// ReadBody reads at most maxSize bytes from r. truncated reports whether
// more data was available. A nil reader yields an empty body. maxSize <= 0
// selects DefaultMaxBodySize.
func ReadBody(r io.Reader, maxSize int64) (body []byte, truncated bool, err error) {
	if r == nil {
		return []byte{}, false, nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}

	// One extra byte tells a body of exactly maxSize from a longer one.
	body, err = io.ReadAll(io.LimitReader(r, maxSize+1))
	if int64(len(body)) > maxSize {
		return body[:maxSize], true, err
	}
	return body, false, err
}

// DrainAndClose discards up to 64KB of what remains in r and closes it if
// it is an io.ReadCloser, so keep-alive connections can be reused.
// Always returns nil, for use in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		_ = rc.Close()
	}
	return nil
}
