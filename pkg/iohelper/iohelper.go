// Package iohelper provides helpers for reading documents and response
// bodies with size limits.
package iohelper

import (
	"errors"
	"fmt"
	"io"
)

// drainLimit bounds how much of an unread body is drained before close.
const drainLimit = 64 * 1024

// ErrTooLarge indicates the input exceeded the read limit.
var ErrTooLarge = errors.New("iohelper: input exceeds size limit")

// ReadLimited reads all of r, failing with ErrTooLarge instead of silently
// truncating when r holds more than maxSize bytes. A nil reader yields an
// empty slice.
//
// Usage:
//
//	body, err := iohelper.ReadLimited(resp.Body, defaults.MaxFixtureBytes)
func ReadLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxSize)
	}
	return data, nil
}

// DrainAndClose reads any remaining data from r and closes it if it's a ReadCloser.
// This ensures the connection can be reused for HTTP keep-alive.
// Always returns nil error to allow use in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))

	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
