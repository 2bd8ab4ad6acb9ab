package terrain

import (
	"github.com/Jeansidharta/moon-stl/pkg/formats"
	"github.com/Jeansidharta/moon-stl/pkg/math"
)

// ProjectChunk projects every pixel of a chunk grid, keeping its shape.
func ProjectChunk(proj Projection, pixels [][]formats.Pixel) [][]math.Vec3 {
	points := make([][]math.Vec3, len(pixels))
	for y, row := range pixels {
		points[y] = make([]math.Vec3, len(row))
		for x, px := range row {
			points[y][x] = proj.Project(px)
		}
	}
	return points
}

// Triangulate emits two triangles for every 2x2 quad of the grid:
// (topRight, topLeft, bottomLeft) and (topRight, bottomLeft, bottomRight).
// Rows shorter than the first row limit the quads taken from them.
func Triangulate(points [][]math.Vec3) []Triangle {
	if len(points) < 2 {
		return nil
	}

	tris := make([]Triangle, 0, 2*(len(points)-1)*max(len(points[0])-1, 0))
	for y := 0; y < len(points)-1; y++ {
		top, bottom := points[y], points[y+1]
		cols := min(len(top), len(bottom))
		for x := 0; x < cols-1; x++ {
			topLeft := top[x]
			topRight := top[x+1]
			bottomLeft := bottom[x]
			bottomRight := bottom[x+1]

			tris = append(tris,
				MakeTriangle(topRight, topLeft, bottomLeft),
				MakeTriangle(topRight, bottomLeft, bottomRight),
			)
		}
	}
	return tris
}

// MakeTriangle builds a triangle with its normal from FaceNormal.
func MakeTriangle(p1, p2, p3 math.Vec3) Triangle {
	return Triangle{
		Normal: FaceNormal(p1, p2),
		P1:     p1,
		P2:     p2,
		P3:     p3,
	}
}

// FaceNormal returns the normalized cross product of the first two vertex
// positions (not of the triangle edges). Existing consumers of the meshes
// expect this value. Parallel positions give the zero vector.
func FaceNormal(p1, p2 math.Vec3) math.Vec3 {
	return p1.Cross(p2).Normalize()
}

// BuildChunk projects and triangulates one chunk grid.
func BuildChunk(proj Projection, pixels [][]formats.Pixel) []Triangle {
	return Triangulate(ProjectChunk(proj, pixels))
}

// TrianglesPerChunk returns the triangle count of a size x size grid.
func TrianglesPerChunk(size int) int {
	if size < 2 {
		return 0
	}
	return 2 * (size - 1) * (size - 1)
}
