// Package formats provides the raster reader and mesh writer used by moonstl.
package formats

import "errors"

// Errors shared by the BMP reader and the STL writer.
var (
	// ErrUnsupportedFormat is returned for rasters that are not 24 bits per pixel.
	ErrUnsupportedFormat = errors.New("unsupported raster format")
	// ErrGeometryMismatch is returned when the raster does not split into whole chunks.
	ErrGeometryMismatch = errors.New("raster geometry does not align with chunk size")
	// ErrOutOfRange is returned for chunk coordinates outside the chunk grid.
	ErrOutOfRange = errors.New("chunk coordinate out of range")
	// ErrIO wraps any failure of the underlying file handle.
	ErrIO = errors.New("i/o error")
)

// Note: BMP (24-bit raster) reading is implemented in bmp.go
// Note: binary STL writing and reading is implemented in stl.go
