package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// createTestBMP builds an uncompressed BMP with unpadded rows. pixel returns
// the stored blue, green, red channels for (x, y).
func createTestBMP(width, height uint32, bits uint16, pixel func(x, y int) [3]byte) []byte {
	buf := new(bytes.Buffer)
	dataSize := width * height * uint32(bits) / 8

	buf.WriteString("BM")
	binary.Write(buf, binary.LittleEndian, uint32(BMPHeaderSize)+dataSize) // file size
	binary.Write(buf, binary.LittleEndian, uint32(0))                      // reserved
	binary.Write(buf, binary.LittleEndian, uint32(BMPHeaderSize))          // data offset
	binary.Write(buf, binary.LittleEndian, uint32(40))                     // info header size
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	binary.Write(buf, binary.LittleEndian, uint16(1)) // planes
	binary.Write(buf, binary.LittleEndian, bits)
	binary.Write(buf, binary.LittleEndian, uint32(0)) // compression
	binary.Write(buf, binary.LittleEndian, dataSize)
	binary.Write(buf, binary.LittleEndian, uint32(2835))
	binary.Write(buf, binary.LittleEndian, uint32(2835))
	binary.Write(buf, binary.LittleEndian, uint32(0))
	binary.Write(buf, binary.LittleEndian, uint32(0))

	if bits == 24 && pixel != nil {
		for y := 0; y < int(height); y++ {
			for x := 0; x < int(width); x++ {
				p := pixel(x, y)
				buf.Write(p[:])
			}
		}
	}

	return buf.Bytes()
}

// coordPixel encodes the coordinate into the channels so reads can be checked.
func coordPixel(x, y int) [3]byte {
	return [3]byte{byte(x), byte(y), byte(x + y)}
}

func TestParseBMPHeader_Fields(t *testing.T) {
	data := make([]byte, BMPHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(data[0x02:], 1001)
	le.PutUint32(data[0x06:], 1002)
	le.PutUint32(data[0x0A:], 1003)
	le.PutUint32(data[0x0E:], 1004)
	le.PutUint32(data[0x12:], 1005)
	le.PutUint32(data[0x16:], 1006)
	le.PutUint16(data[0x1A:], 7)
	le.PutUint16(data[0x1C:], 24)
	le.PutUint32(data[0x1E:], 1009)
	le.PutUint32(data[0x22:], 1010)
	le.PutUint32(data[0x26:], 1011)
	le.PutUint32(data[0x2A:], 1012)
	le.PutUint32(data[0x2E:], 1013)
	le.PutUint32(data[0x32:], 1014)

	h, err := ParseBMPHeader(data)
	if err != nil {
		t.Fatalf("ParseBMPHeader failed: %v", err)
	}

	want := BMPHeader{
		FileSize:        1001,
		Reserved:        1002,
		DataOffset:      1003,
		InfoHeaderSize:  1004,
		Width:           1005,
		Height:          1006,
		Planes:          7,
		BitsPerPixel:    24,
		Compression:     1009,
		ImageSize:       1010,
		XPixelsPerM:     1011,
		YPixelsPerM:     1012,
		ColorsUsed:      1013,
		ImportantColors: 1014,
	}
	if *h != want {
		t.Errorf("expected header %+v, got %+v", want, *h)
	}
}

func TestParseBMPHeader_Truncated(t *testing.T) {
	_, err := ParseBMPHeader([]byte("BM"))
	if !errors.Is(err, ErrTruncatedBMPData) {
		t.Errorf("expected ErrTruncatedBMPData, got %v", err)
	}
}

func TestReadBMPHeader_Short(t *testing.T) {
	_, err := ReadBMPHeader(bytes.NewReader(make([]byte, 20)))
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, ErrTruncatedBMPData) {
		t.Errorf("expected ErrTruncatedBMPData, got %v", err)
	}
}

func TestReadBMPHeader_ExactSize(t *testing.T) {
	data := createTestBMP(128, 128, 24, nil)
	h, err := ReadBMPHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadBMPHeader failed: %v", err)
	}
	if h.Width != 128 || h.Height != 128 {
		t.Errorf("expected 128x128, got %dx%d", h.Width, h.Height)
	}
	if h.DataOffset != BMPHeaderSize {
		t.Errorf("expected data offset %d, got %d", BMPHeaderSize, h.DataOffset)
	}
}

func TestNewBMPGeometry(t *testing.T) {
	tests := []struct {
		name       string
		width      uint32
		height     uint32
		bits       uint16
		chunkBytes int
		wantErr    error
		chunksX    int
		chunksY    int
		ppc        int
	}{
		{name: "square", width: 256, height: 256, bits: 24, chunkBytes: 384, chunksX: 2, chunksY: 2, ppc: 128},
		{name: "wide", width: 512, height: 128, bits: 24, chunkBytes: 384, chunksX: 4, chunksY: 1, ppc: 128},
		{name: "small chunks", width: 12, height: 8, bits: 24, chunkBytes: 12, chunksX: 3, chunksY: 2, ppc: 4},
		{name: "32 bpp", width: 256, height: 256, bits: 32, chunkBytes: 384, wantErr: ErrUnsupportedFormat},
		{name: "8 bpp", width: 256, height: 256, bits: 8, chunkBytes: 384, wantErr: ErrUnsupportedFormat},
		{name: "width not aligned", width: 200, height: 256, bits: 24, chunkBytes: 384, wantErr: ErrGeometryMismatch},
		{name: "height not aligned", width: 256, height: 300, bits: 24, chunkBytes: 384, wantErr: ErrGeometryMismatch},
		{name: "partial pixel chunk", width: 256, height: 256, bits: 24, chunkBytes: 100, wantErr: ErrGeometryMismatch},
		{name: "zero chunk", width: 256, height: 256, bits: 24, chunkBytes: 0, wantErr: ErrGeometryMismatch},
		{name: "empty raster", width: 0, height: 256, bits: 24, chunkBytes: 384, wantErr: ErrGeometryMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseBMPHeader(createTestBMP(tt.width, tt.height, tt.bits, nil))
			if err != nil {
				t.Fatalf("ParseBMPHeader failed: %v", err)
			}

			g, err := NewBMPGeometry(h, tt.chunkBytes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBMPGeometry failed: %v", err)
			}
			if g.BytesPerPixel != 3 {
				t.Errorf("expected 3 bytes per pixel, got %d", g.BytesPerPixel)
			}
			if g.PixelsPerChunk != tt.ppc {
				t.Errorf("expected %d pixels per chunk, got %d", tt.ppc, g.PixelsPerChunk)
			}
			if g.ChunksX != tt.chunksX || g.ChunksY != tt.chunksY {
				t.Errorf("expected %dx%d chunks, got %dx%d", tt.chunksX, tt.chunksY, g.ChunksX, g.ChunksY)
			}
		})
	}
}

func TestNewBMPReader_Unsupported(t *testing.T) {
	data := createTestBMP(256, 256, 32, nil)
	_, err := NewBMPReader(bytes.NewReader(data), DefaultChunkBytes)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadChunk_Size(t *testing.T) {
	data := createTestBMP(256, 256, 24, coordPixel)
	r, err := NewBMPReader(bytes.NewReader(data), DefaultChunkBytes)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	if r.Geometry.ChunksX != 2 || r.Geometry.ChunksY != 2 {
		t.Fatalf("expected 2x2 chunks, got %dx%d", r.Geometry.ChunksX, r.Geometry.ChunksY)
	}

	pixels, err := r.ReadChunk(0, 0)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if len(pixels) != 130 {
		t.Fatalf("expected 130 rows, got %d", len(pixels))
	}
	for i, row := range pixels {
		if len(row) != 130 {
			t.Fatalf("row %d: expected 130 columns, got %d", i, len(row))
		}
	}
}

func TestReadChunk_OutOfRange(t *testing.T) {
	data := createTestBMP(8, 8, 24, coordPixel)
	r, err := NewBMPReader(bytes.NewReader(data), 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	coords := [][2]int{{2, 0}, {0, 2}, {-1, 0}, {0, -1}, {5, 5}}
	for _, c := range coords {
		if _, err := r.ReadChunk(c[0], c[1]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("chunk %v: expected ErrOutOfRange, got %v", c, err)
		}
	}
}

func TestReadChunk_Values(t *testing.T) {
	data := createTestBMP(8, 8, 24, coordPixel)
	r, err := NewBMPReader(bytes.NewReader(data), 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	pixels, err := r.ReadChunk(1, 1)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}

	// Interior starts at index 1; chunk (1,1) of 4-pixel chunks begins at (4,4).
	for i := 1; i <= 4; i++ {
		for j := 1; j <= 4; j++ {
			p := pixels[i][j]
			x, y := 4+j-1, 4+i-1
			if p.X != x || p.Y != y {
				t.Errorf("[%d][%d]: expected coords (%d,%d), got (%d,%d)", i, j, x, y, p.X, p.Y)
			}
			if p.B != byte(x) || p.G != byte(y) || p.R != byte(x+y) {
				t.Errorf("[%d][%d]: expected BGR (%d,%d,%d), got (%d,%d,%d)", i, j, x, y, x+y, p.B, p.G, p.R)
			}
			wantGray := float64(x+y+x+y) / 3
			if p.Gray != wantGray {
				t.Errorf("[%d][%d]: expected gray %v, got %v", i, j, wantGray, p.Gray)
			}
		}
	}

	// Top-left halo comes from chunk (0,0).
	if p := pixels[0][0]; p.X != 3 || p.Y != 3 {
		t.Errorf("expected top-left halo at (3,3), got (%d,%d)", p.X, p.Y)
	}
}

func TestReadChunk_GrayIsChannelMean(t *testing.T) {
	data := createTestBMP(4, 4, 24, func(x, y int) [3]byte {
		return [3]byte{10, 20, 60}
	})
	r, err := NewBMPReader(bytes.NewReader(data), 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	pixels, err := r.ReadChunk(0, 0)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	p := pixels[2][2]
	if p.B != 10 || p.G != 20 || p.R != 60 {
		t.Errorf("expected BGR (10,20,60), got (%d,%d,%d)", p.B, p.G, p.R)
	}
	if p.Gray != 30 {
		t.Errorf("expected gray 30, got %v", p.Gray)
	}
}

func TestReadChunk_ClampsAtRasterEdges(t *testing.T) {
	data := createTestBMP(8, 8, 24, coordPixel)
	r, err := NewBMPReader(bytes.NewReader(data), 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	first, err := r.ReadChunk(0, 0)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	for j := range first[0] {
		if first[0][j] != first[1][j] {
			t.Errorf("top halo column %d: expected %+v, got %+v", j, first[1][j], first[0][j])
		}
	}
	for i := range first {
		if first[i][0] != first[i][1] {
			t.Errorf("left halo row %d: expected %+v, got %+v", i, first[i][1], first[i][0])
		}
	}

	last, err := r.ReadChunk(1, 1)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	n := len(last) - 1
	for j := range last[n] {
		if last[n][j] != last[n-1][j] {
			t.Errorf("bottom halo column %d: expected %+v, got %+v", j, last[n-1][j], last[n][j])
		}
		if last[n][j].Y != 7 {
			t.Errorf("bottom halo column %d: expected row 7, got %d", j, last[n][j].Y)
		}
	}
	for i := range last {
		if last[i][n] != last[i][n-1] {
			t.Errorf("right halo row %d: expected %+v, got %+v", i, last[i][n-1], last[i][n])
		}
		if last[i][n].X != 7 {
			t.Errorf("right halo row %d: expected column 7, got %d", i, last[i][n].X)
		}
	}
}

func TestReadChunk_Stitching(t *testing.T) {
	data := createTestBMP(12, 12, 24, coordPixel)
	r, err := NewBMPReader(bytes.NewReader(data), 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	g := r.Geometry
	chunks := make(map[[2]int][][]Pixel)
	for cy := 0; cy < g.ChunksY; cy++ {
		for cx := 0; cx < g.ChunksX; cx++ {
			pixels, err := r.ReadChunk(cx, cy)
			if err != nil {
				t.Fatalf("ReadChunk(%d,%d) failed: %v", cx, cy, err)
			}
			chunks[[2]int{cx, cy}] = pixels
		}
	}

	size := r.ChunkSize()
	for cy := 0; cy < g.ChunksY; cy++ {
		for cx := 0; cx < g.ChunksX-1; cx++ {
			left := chunks[[2]int{cx, cy}]
			right := chunks[[2]int{cx + 1, cy}]
			for i := 0; i < size; i++ {
				if left[i][size-1] != right[i][1] {
					t.Errorf("chunks (%d,%d)|(%d,%d) row %d: right halo %+v != left interior %+v",
						cx, cy, cx+1, cy, i, left[i][size-1], right[i][1])
				}
				if right[i][0] != left[i][size-2] {
					t.Errorf("chunks (%d,%d)|(%d,%d) row %d: left halo %+v != right interior %+v",
						cx, cy, cx+1, cy, i, right[i][0], left[i][size-2])
				}
			}
		}
	}

	for cy := 0; cy < g.ChunksY-1; cy++ {
		for cx := 0; cx < g.ChunksX; cx++ {
			top := chunks[[2]int{cx, cy}]
			bottom := chunks[[2]int{cx, cy + 1}]
			for j := 0; j < size; j++ {
				if top[size-1][j] != bottom[1][j] {
					t.Errorf("chunks (%d,%d)/(%d,%d) column %d: bottom halo %+v != top interior %+v",
						cx, cy, cx, cy+1, j, top[size-1][j], bottom[1][j])
				}
				if bottom[0][j] != top[size-2][j] {
					t.Errorf("chunks (%d,%d)/(%d,%d) column %d: top halo %+v != bottom interior %+v",
						cx, cy, cx, cy+1, j, bottom[0][j], top[size-2][j])
				}
			}
		}
	}
}

var errDiskGone = errors.New("disk gone")

// failingReaderAt serves the header and fails every read past it.
type failingReaderAt struct {
	data []byte
}

func (f *failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= BMPHeaderSize {
		return 0, errDiskGone
	}
	return bytes.NewReader(f.data).ReadAt(p, off)
}

func TestReadChunk_ReadError(t *testing.T) {
	data := createTestBMP(8, 8, 24, coordPixel)
	r, err := NewBMPReader(&failingReaderAt{data: data}, 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	_, err = r.ReadChunk(0, 0)
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, errDiskGone) {
		t.Errorf("expected underlying error to be preserved, got %v", err)
	}
}

func TestReadChunk_TruncatedData(t *testing.T) {
	data := createTestBMP(8, 8, 24, coordPixel)
	data = data[:len(data)-10]
	r, err := NewBMPReader(bytes.NewReader(data), 12)
	if err != nil {
		t.Fatalf("NewBMPReader failed: %v", err)
	}

	_, err = r.ReadChunk(1, 1)
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestOpenBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.bmp")
	if err := os.WriteFile(path, createTestBMP(8, 8, 24, coordPixel), 0644); err != nil {
		t.Fatalf("failed to write test raster: %v", err)
	}

	r, err := OpenBMP(path, 12)
	if err != nil {
		t.Fatalf("OpenBMP failed: %v", err)
	}
	if _, err := r.ReadChunk(1, 0); err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, err := r.ReadChunk(0, 0); !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO after Close, got %v", err)
	}
}

func TestOpenBMP_Missing(t *testing.T) {
	_, err := OpenBMP("/nonexistent/tile.bmp", DefaultChunkBytes)
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
