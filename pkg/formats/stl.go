package formats

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/multierr"
)

// Binary STL layout.
const (
	STLHeaderSize = 80
	STLRecordSize = 50
	stlDataStart  = STLHeaderSize + 4
)

// STL errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrTooManyTriangles = errors.New("triangle count exceeds STL limit")
)

// STLTriangle is one STL facet record.
type STLTriangle struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16
}

// WriterAtCloser is the output handle an STLWriter owns.
type WriterAtCloser interface {
	io.WriterAt
	io.Closer
}

// STLWriter streams triangles into a binary STL file. Records are written
// at fixed offsets and the triangle count is patched in on Close.
type STLWriter struct {
	w      WriterAtCloser
	count  uint32
	err    error
	closed bool
	buf    [STLRecordSize]byte
}

// CreateSTL creates (or truncates) path and writes an empty STL prologue.
func CreateSTL(path, label string) (*STLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: creating file: %w", ErrIO, err)
	}

	writer, err := NewSTLWriter(file, label)
	if err != nil {
		file.Close()
		return nil, err
	}
	return writer, nil
}

// NewSTLWriter writes the 80-byte header and a zero triangle count to w.
// label is copied into the header, truncated to fit; the rest is zero.
func NewSTLWriter(w WriterAtCloser, label string) (*STLWriter, error) {
	var prologue [stlDataStart]byte
	copy(prologue[:STLHeaderSize], label)

	if err := writeFullAt(w, prologue[:], 0); err != nil {
		return nil, fmt.Errorf("writing STL header: %w", err)
	}
	return &STLWriter{w: w}, nil
}

// Count returns the number of triangles written so far.
func (s *STLWriter) Count() uint32 {
	return s.count
}

// WriteTriangle appends one record. After a failed write the writer refuses
// further triangles and returns the original error.
func (s *STLWriter) WriteTriangle(t STLTriangle) error {
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return fmt.Errorf("%w: %w", ErrIO, os.ErrClosed)
	}
	if s.count == math.MaxUint32 {
		s.err = ErrTooManyTriangles
		return s.err
	}

	encodeSTLTriangle(s.buf[:], t)
	offset := int64(stlDataStart) + int64(s.count)*STLRecordSize
	if err := writeFullAt(s.w, s.buf[:], offset); err != nil {
		s.err = fmt.Errorf("writing triangle %d: %w", s.count, err)
		return s.err
	}
	s.count++
	return nil
}

// Close patches the count of triangles written and closes the handle. If a
// write failed, the records before it are kept and counted, and Close
// returns that write error along with any error of its own. Calling Close
// more than once is a no-op.
func (s *STLWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.err
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], s.count)
	if werr := writeFullAt(s.w, count[:], STLHeaderSize); werr != nil {
		err = multierr.Append(err, fmt.Errorf("writing triangle count: %w", werr))
	}
	if cerr := s.w.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: closing file: %w", ErrIO, cerr))
	}
	return err
}

func encodeSTLTriangle(buf []byte, t STLTriangle) {
	le := binary.LittleEndian
	putVec := func(off int, v [3]float32) {
		le.PutUint32(buf[off:], math.Float32bits(v[0]))
		le.PutUint32(buf[off+4:], math.Float32bits(v[1]))
		le.PutUint32(buf[off+8:], math.Float32bits(v[2]))
	}
	putVec(0x00, t.Normal)
	putVec(0x0C, t.Vertices[0])
	putVec(0x18, t.Vertices[1])
	putVec(0x24, t.Vertices[2])
	le.PutUint16(buf[0x30:], t.Attribute)
}

func decodeSTLTriangle(buf []byte) STLTriangle {
	le := binary.LittleEndian
	getVec := func(off int) [3]float32 {
		return [3]float32{
			math.Float32frombits(le.Uint32(buf[off:])),
			math.Float32frombits(le.Uint32(buf[off+4:])),
			math.Float32frombits(le.Uint32(buf[off+8:])),
		}
	}
	return STLTriangle{
		Normal:    getVec(0x00),
		Vertices:  [3][3]float32{getVec(0x0C), getVec(0x18), getVec(0x24)},
		Attribute: le.Uint16(buf[0x30:]),
	}
}

func writeFullAt(w io.WriterAt, data []byte, offset int64) error {
	n, err := w.WriteAt(data, offset)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// STL is a decoded binary STL file.
type STL struct {
	Header    [STLHeaderSize]byte
	Triangles []STLTriangle
}

// ReadSTL decodes a binary STL stream.
func ReadSTL(r io.Reader) (*STL, error) {
	var s STL
	if _, err := io.ReadFull(r, s.Header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedSTLData)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading triangle count", ErrTruncatedSTLData)
	}

	// Cap the preallocation; the count field is untrusted.
	s.Triangles = make([]STLTriangle, 0, min(count, 1<<16))
	var buf [STLRecordSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: reading triangle %d of %d", ErrTruncatedSTLData, i, count)
		}
		s.Triangles = append(s.Triangles, decodeSTLTriangle(buf[:]))
	}

	return &s, nil
}

// ReadSTLFile decodes a binary STL file from disk.
func ReadSTLFile(path string) (*STL, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening file: %w", ErrIO, err)
	}
	defer file.Close()
	return ReadSTL(bufio.NewReader(file))
}
