// Package driver implements the pluggable byte-range transports a Resource
// reads through: a local file, an HTTP(S) endpoint, or an S3 object. Each
// variant satisfies the same Driver interface so the rest of the reader
// never needs to know which one it's talking to.
//
// Grounded on the reference Python drivers (filedriver.py, webdriver.py,
// s3driver.py): one mutex-guarded descriptor for files, a bearer-token
// Range-GET client for HTTP, and a three-mode-credential S3 client with a
// caller-sized connection pool.
package driver

import (
	"context"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
)

// Driver reads byte ranges from an opened resource.
type Driver interface {
	// ReadRange fetches exactly size bytes starting at offset, or fails
	// with an error wrapping herrors.ErrIO.
	ReadRange(ctx context.Context, offset, size int64) ([]byte, error)

	// Copy produces an independent handle suitable for use by another
	// worker (its own connection pool / file descriptor), so that
	// process-mode workers never contend with each other or the
	// original handle.
	Copy() (Driver, error)

	// Close releases underlying resources. Idempotent.
	Close() error
}

func ioError(context string, cause error) error {
	return herrors.IoFailure(context, cause)
}
