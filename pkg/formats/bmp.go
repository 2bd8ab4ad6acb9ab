package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// BMPHeaderSize is the size of the file header plus the BITMAPINFOHEADER.
const BMPHeaderSize = 0x36

// DefaultChunkBytes is the chunk edge length in bytes (128 pixels at 24 bpp).
const DefaultChunkBytes = 128 * 3

// ErrTruncatedBMPData is returned when the header cannot be read in full.
var ErrTruncatedBMPData = errors.New("truncated BMP data")

// BMPHeader holds the fields of a BMP prologue.
type BMPHeader struct {
	FileSize        uint32
	Reserved        uint32
	DataOffset      uint32
	InfoHeaderSize  uint32
	Width           uint32
	Height          uint32
	Planes          uint16
	BitsPerPixel    uint16
	Compression     uint32
	ImageSize       uint32
	XPixelsPerM     uint32
	YPixelsPerM     uint32
	ColorsUsed      uint32
	ImportantColors uint32
}

// ParseBMPHeader decodes a BMP header from the first BMPHeaderSize bytes of data.
func ParseBMPHeader(data []byte) (*BMPHeader, error) {
	if len(data) < BMPHeaderSize {
		return nil, fmt.Errorf("%w: got %d of %d header bytes", ErrTruncatedBMPData, len(data), BMPHeaderSize)
	}

	le := binary.LittleEndian
	return &BMPHeader{
		FileSize:        le.Uint32(data[0x02:]),
		Reserved:        le.Uint32(data[0x06:]),
		DataOffset:      le.Uint32(data[0x0A:]),
		InfoHeaderSize:  le.Uint32(data[0x0E:]),
		Width:           le.Uint32(data[0x12:]),
		Height:          le.Uint32(data[0x16:]),
		Planes:          le.Uint16(data[0x1A:]),
		BitsPerPixel:    le.Uint16(data[0x1C:]),
		Compression:     le.Uint32(data[0x1E:]),
		ImageSize:       le.Uint32(data[0x22:]),
		XPixelsPerM:     le.Uint32(data[0x26:]),
		YPixelsPerM:     le.Uint32(data[0x2A:]),
		ColorsUsed:      le.Uint32(data[0x2E:]),
		ImportantColors: le.Uint32(data[0x32:]),
	}, nil
}

// ReadBMPHeader reads and decodes the header at offset 0 of r.
func ReadBMPHeader(r io.ReaderAt) (*BMPHeader, error) {
	var buf [BMPHeaderSize]byte
	n, err := r.ReadAt(buf[:], 0)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrTruncatedBMPData
		}
		return nil, fmt.Errorf("%w: reading header: %w", ErrIO, err)
	}
	return ParseBMPHeader(buf[:])
}

// BMPGeometry is the chunk layout derived from a header and a chunk size.
type BMPGeometry struct {
	BytesPerPixel  int
	ChunkBytes     int
	PixelsPerChunk int // chunk edge length in pixels
	ChunksX        int
	ChunksY        int
}

// NewBMPGeometry validates h against the chunk size and computes the chunk grid.
func NewBMPGeometry(h *BMPHeader, chunkBytes int) (BMPGeometry, error) {
	if h.BitsPerPixel != 24 {
		return BMPGeometry{}, fmt.Errorf("%w: %d bits per pixel, only 24 is supported", ErrUnsupportedFormat, h.BitsPerPixel)
	}

	bpp := int(h.BitsPerPixel) / 8
	if chunkBytes <= 0 || chunkBytes%bpp != 0 {
		return BMPGeometry{}, fmt.Errorf("%w: chunk of %d bytes is not a whole number of %d-byte pixels", ErrGeometryMismatch, chunkBytes, bpp)
	}
	ppc := chunkBytes / bpp

	width, height := int(h.Width), int(h.Height)
	if width == 0 || height == 0 {
		return BMPGeometry{}, fmt.Errorf("%w: empty raster %dx%d", ErrGeometryMismatch, width, height)
	}
	if width%ppc != 0 {
		return BMPGeometry{}, fmt.Errorf("%w: width %d is not a multiple of %d", ErrGeometryMismatch, width, ppc)
	}
	if height%ppc != 0 {
		return BMPGeometry{}, fmt.Errorf("%w: height %d is not a multiple of %d", ErrGeometryMismatch, height, ppc)
	}

	return BMPGeometry{
		BytesPerPixel:  bpp,
		ChunkBytes:     chunkBytes,
		PixelsPerChunk: ppc,
		ChunksX:        width / ppc,
		ChunksY:        height / ppc,
	}, nil
}

// Pixel is one raster sample with its absolute raster coordinate.
type Pixel struct {
	B, G, R uint8
	Gray    float64 // mean of the three channels, 0-255
	X, Y    int     // column, row
}

// BMPReader reads padded chunks of pixels from a 24-bit BMP.
type BMPReader struct {
	Header   *BMPHeader
	Geometry BMPGeometry

	r      io.ReaderAt
	closer io.Closer
	closed bool
	rowBuf []byte
}

// OpenBMP opens a BMP file for chunked reading.
func OpenBMP(path string, chunkBytes int) (*BMPReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening file: %w", ErrIO, err)
	}

	reader, err := NewBMPReader(file, chunkBytes)
	if err != nil {
		file.Close()
		return nil, err
	}
	return reader, nil
}

// NewBMPReader parses the header of r and validates its chunk geometry.
// If r implements io.Closer it is closed by Close.
func NewBMPReader(r io.ReaderAt, chunkBytes int) (*BMPReader, error) {
	header, err := ReadBMPHeader(r)
	if err != nil {
		return nil, err
	}
	geom, err := NewBMPGeometry(header, chunkBytes)
	if err != nil {
		return nil, err
	}

	reader := &BMPReader{
		Header:   header,
		Geometry: geom,
		r:        r,
	}
	if c, ok := r.(io.Closer); ok {
		reader.closer = c
	}
	return reader, nil
}

// Close releases the underlying handle. Subsequent calls do nothing.
func (b *BMPReader) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// ChunkSize returns the edge length of the grid returned by ReadChunk.
func (b *BMPReader) ChunkSize() int {
	return b.Geometry.PixelsPerChunk + 2
}

// ReadChunk returns the pixels of chunk (cx, cy) with a one-pixel halo on
// every side. Halo pixels come from the neighbouring chunk, or repeat the edge
// pixel at the raster boundary. The result is indexed [row][column].
func (b *BMPReader) ReadChunk(cx, cy int) ([][]Pixel, error) {
	g := b.Geometry
	if cx < 0 || cx >= g.ChunksX {
		return nil, fmt.Errorf("%w: x is %d, chunk grid width is %d", ErrOutOfRange, cx, g.ChunksX)
	}
	if cy < 0 || cy >= g.ChunksY {
		return nil, fmt.Errorf("%w: y is %d, chunk grid height is %d", ErrOutOfRange, cy, g.ChunksY)
	}
	if b.closed {
		return nil, fmt.Errorf("%w: %w", ErrIO, os.ErrClosed)
	}

	width, height := int(b.Header.Width), int(b.Header.Height)
	size := b.ChunkSize()
	startX := cx * g.PixelsPerChunk
	startY := cy * g.PixelsPerChunk

	// Every row covers the same contiguous column span.
	firstCol := clamp(startX-1, 0, width-1)
	lastCol := clamp(startX+g.PixelsPerChunk, 0, width-1)
	spanBytes := (lastCol - firstCol + 1) * g.BytesPerPixel
	if cap(b.rowBuf) < spanBytes {
		b.rowBuf = make([]byte, spanBytes)
	}
	buf := b.rowBuf[:spanBytes]

	pixels := make([][]Pixel, size)
	for i := 0; i < size; i++ {
		y := clamp(startY+i-1, 0, height-1)
		offset := int64(b.Header.DataOffset) + (int64(y)*int64(width)+int64(firstCol))*int64(g.BytesPerPixel)
		if err := b.readAt(buf, offset); err != nil {
			return nil, fmt.Errorf("reading chunk (%d, %d) row %d: %w", cx, cy, y, err)
		}

		row := make([]Pixel, size)
		for j := 0; j < size; j++ {
			x := clamp(startX+j-1, 0, width-1)
			at := (x - firstCol) * g.BytesPerPixel
			row[j] = newPixel(buf[at], buf[at+1], buf[at+2], x, y)
		}
		pixels[i] = row
	}

	return pixels, nil
}

func (b *BMPReader) readAt(buf []byte, offset int64) error {
	n, err := b.r.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// newPixel builds a pixel from its stored blue, green, red channels.
func newPixel(blue, green, red uint8, x, y int) Pixel {
	return Pixel{
		B:    blue,
		G:    green,
		R:    red,
		Gray: float64(int(red)+int(green)+int(blue)) / 3,
		X:    x,
		Y:    y,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
