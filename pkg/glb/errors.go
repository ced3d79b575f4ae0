package glb

import (
	"errors"
	"fmt"
)

// ErrFormat is the root of every container or document error. A FormatError
// is fatal for the whole file: no partial result is returned.
var ErrFormat = errors.New("malformed GLB")

// GLB format errors.
var (
	ErrInvalidMagic       = fmt.Errorf("%w: invalid magic, expected 'glTF'", ErrFormat)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported container version", ErrFormat)
	ErrTruncated          = fmt.Errorf("%w: truncated data", ErrFormat)
	ErrChunkLength        = fmt.Errorf("%w: chunk length inconsistent with buffer size", ErrFormat)
	ErrMissingJSONChunk   = fmt.Errorf("%w: first chunk is not JSON", ErrFormat)
	ErrBadJSON            = fmt.Errorf("%w: invalid JSON document", ErrFormat)
	ErrOutOfRange         = fmt.Errorf("%w: reference out of range", ErrFormat)
)

// ErrFileTooLarge is reported inside an IOError when a file exceeds the
// processor's size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// IOError reports a file that could not be read. It unwraps to the
// underlying os error, so errors.Is(err, fs.ErrNotExist) works.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Primitive-level problems. These never abort a file; the primitive (or one
// of its optional attributes) is dropped and a PartialDataWarning recorded.
var (
	errMissingPosition = errors.New("missing POSITION attribute")
	errAccessorLayout  = errors.New("unexpected accessor layout")
	errPrimitiveMode   = errors.New("not a triangle list")
	errIndexCount      = errors.New("index count is not a multiple of 3")
	errIndexRange      = errors.New("index refers past the last vertex")
	errNonFinite       = errors.New("non-finite float in accessor")
)

// PartialDataWarning describes a primitive or attribute skipped during
// processing.
type PartialDataWarning struct {
	Mesh      string
	Primitive int
	Err       error
}

func (w PartialDataWarning) Error() string {
	return fmt.Sprintf("mesh %s primitive %d: %v", w.Mesh, w.Primitive, w.Err)
}

func (w PartialDataWarning) Unwrap() error {
	return w.Err
}
