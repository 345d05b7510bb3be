// Package herrors defines the error taxonomy shared across the reader:
// format violations, unsupported features, driver I/O failures, and bad
// hyperslice selections. Each sentinel is wrapped by the package's own
// FormatError/UnsupportedFeature/IoFailure/HypersliceError helpers, which
// keep the contextual "context: cause" message internal/utils.WrapError
// uses while additionally satisfying errors.Is against the sentinel class.
// internal/utils.WrapError remains the right tool for untyped structural
// wrapping (object header, B-tree, heap parsing); reach for herrors at a
// public entry point once a failure needs to be classified by callers.
package herrors

import "errors"

// Sentinel errors identifying the taxonomy from a dataset-read failure.
// Wrap causes with the package's *Error helpers (e.g. FormatError("context",
// err)) rather than constructing ad-hoc error strings, so callers can
// classify failures with errors.Is regardless of which package raised them.
var (
	// ErrFormat signals a signature, version, or invariant violation in
	// the file itself. Fatal to the current dataset only.
	ErrFormat = errors.New("hdf5: format error")

	// ErrUnsupported signals a feature the reader deliberately does not
	// implement (szip/fletcher32/nbit/scaleoffset filters, shared
	// attribute messages, compound element unpacking, soft/external link
	// traversal). Fatal to the current dataset only.
	ErrUnsupported = errors.New("hdf5: unsupported feature")

	// ErrIO signals a driver-level read failure: non-2xx HTTP, missing
	// S3 object, short file read. The driver remains usable for other
	// requests unless explicitly closed.
	ErrIO = errors.New("hdf5: io failure")

	// ErrHyperslice signals a caller-supplied hyperslice inconsistent
	// with the dataset's dimensions (too many dims, out-of-range bounds,
	// hi < lo).
	ErrHyperslice = errors.New("hdf5: invalid hyperslice")

	// ErrPending is returned by a non-blocking result check when a
	// dataset's worker has not yet completed.
	ErrPending = errors.New("hdf5: result pending")
)

// FormatError wraps cause as an ErrFormat, carrying context for the
// message while still satisfying errors.Is(err, ErrFormat).
func FormatError(context string, cause error) error {
	return wrap(context, ErrFormat, cause)
}

// UnsupportedFeature wraps cause (or, with a nil cause, just the context
// string) as an ErrUnsupported.
func UnsupportedFeature(context string, cause error) error {
	return wrap(context, ErrUnsupported, cause)
}

// IoFailure wraps cause as an ErrIO.
func IoFailure(context string, cause error) error {
	return wrap(context, ErrIO, cause)
}

// HypersliceError wraps cause as an ErrHyperslice.
func HypersliceError(context string, cause error) error {
	return wrap(context, ErrHyperslice, cause)
}

// taxonomyError pairs a sentinel class with a contextual message so
// errors.Is(err, ErrFormat) works without requiring every call site to
// construct a %w chain by hand.
type taxonomyError struct {
	context string
	class   error
	cause   error
}

func (e *taxonomyError) Error() string {
	msg := e.context
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *taxonomyError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.class, e.cause}
	}
	return []error{e.class}
}

func wrap(context string, class, cause error) error {
	return &taxonomyError{context: context, class: class, cause: cause}
}
