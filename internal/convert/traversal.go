package convert

// ChunkCoord addresses one chunk of the raster's chunk grid.
type ChunkCoord struct {
	X, Y int
}

// Range selects a rectangle of chunks. Ends are exclusive; a negative end
// or one past the grid means the grid edge.
type Range struct {
	StartX, StartY int
	EndX, EndY     int
}

// FullRange covers the whole chunk grid.
var FullRange = Range{EndX: -1, EndY: -1}

// clip limits r to a chunksX x chunksY grid.
func (r Range) clip(chunksX, chunksY int) Range {
	clipAxis := func(start, end, n int) (int, int) {
		if end < 0 || end > n {
			end = n
		}
		start = max(start, 0)
		if start > end {
			start = end
		}
		return start, end
	}
	r.StartX, r.EndX = clipAxis(r.StartX, r.EndX, chunksX)
	r.StartY, r.EndY = clipAxis(r.StartY, r.EndY, chunksY)
	return r
}

// RowMajor lists the chunks of r clipped to the grid, left to right then
// top to bottom.
func RowMajor(r Range, chunksX, chunksY int) []ChunkCoord {
	r = r.clip(chunksX, chunksY)

	chunks := make([]ChunkCoord, 0, (r.EndX-r.StartX)*(r.EndY-r.StartY))
	for y := r.StartY; y < r.EndY; y++ {
		for x := r.StartX; x < r.EndX; x++ {
			chunks = append(chunks, ChunkCoord{X: x, Y: y})
		}
	}
	return chunks
}
