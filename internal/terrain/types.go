// Package terrain projects elevation pixels onto a sphere and triangulates chunks.
package terrain

import (
	gomath "math"

	"github.com/Jeansidharta/moon-stl/pkg/formats"
	"github.com/Jeansidharta/moon-stl/pkg/math"
)

// Triangle is one mesh facet in model space.
type Triangle struct {
	Normal     math.Vec3
	P1, P2, P3 math.Vec3
}

// STL converts the triangle to an STL record.
func (t Triangle) STL() formats.STLTriangle {
	return formats.STLTriangle{
		Normal:   t.Normal.Float32(),
		Vertices: [3][3]float32{t.P1.Float32(), t.P2.Float32(), t.P3.Float32()},
	}
}

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// NewBounds returns an empty box that any point will extend.
func NewBounds() Bounds {
	inf := gomath.Inf(1)
	return Bounds{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return b.Min.X > b.Max.X
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p math.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// ExtendTriangles grows the box to contain every vertex of tris.
func (b *Bounds) ExtendTriangles(tris []Triangle) {
	for _, t := range tris {
		b.Extend(t.P1)
		b.Extend(t.P2)
		b.Extend(t.P3)
	}
}
