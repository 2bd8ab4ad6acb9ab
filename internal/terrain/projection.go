package terrain

import (
	gomath "math"

	"github.com/Jeansidharta/moon-stl/pkg/formats"
	"github.com/Jeansidharta/moon-stl/pkg/math"
)

// Lunar constants for the SLDEM2015 00N-30N / 000-045 tile at 512 px/deg.
const (
	MoonRadius      = 1_737_100.0     // meters
	MoonMinAltitude = -9830.677734375 // meters
	MoonMaxAltitude = 6965.677734375  // meters
	TileMaxLat      = 30.0            // degrees
	TileMaxLng      = 45.0            // degrees
	DegreesPerPixel = 1.0 / 512.0
)

// Projection maps raster pixels onto a sphere.
type Projection struct {
	OriginLat       float64 // latitude of raster row 0
	OriginLng       float64 // longitude of raster column 0
	MinLat          float64
	MinLng          float64
	DegreesPerPixel float64
	Radius          float64
	MinAltitude     float64
	MaxAltitude     float64
	Offset          float64 // added to every Cartesian component
}

// DefaultProjection returns the projection of the lunar elevation tile.
func DefaultProjection() Projection {
	return Projection{
		OriginLat:       TileMaxLat,
		OriginLng:       TileMaxLng,
		MinLat:          0,
		MinLng:          0,
		DegreesPerPixel: DegreesPerPixel,
		Radius:          MoonRadius,
		MinAltitude:     MoonMinAltitude,
		MaxAltitude:     MoonMaxAltitude,
	}
}

// LatLngAlt is a geographic position in degrees and meters above the datum.
type LatLngAlt struct {
	Lat, Lng, Alt float64
}

// LatLngAlt converts a pixel to its geographic position. Rows run south from
// OriginLat and columns run west from OriginLng.
//
// The gray level is not normalized to [0,1] before scaling by the altitude
// range; output geometry depends on this.
func (p Projection) LatLngAlt(px formats.Pixel) LatLngAlt {
	return LatLngAlt{
		Lat: p.OriginLat - float64(px.Y)*p.DegreesPerPixel + p.MinLat,
		Lng: p.OriginLng - float64(px.X)*p.DegreesPerPixel + p.MinLng,
		Alt: px.Gray*(p.MaxAltitude-p.MinAltitude) + p.MinAltitude,
	}
}

// ToCartesian converts a geographic position to Cartesian coordinates
// centered on the sphere.
func (p Projection) ToCartesian(g LatLngAlt) math.Vec3 {
	lat := g.Lat * gomath.Pi / 180
	lng := g.Lng * gomath.Pi / 180
	dir := math.Vec3{
		X: gomath.Cos(lat) * gomath.Cos(lng),
		Y: gomath.Cos(lat) * gomath.Sin(lng),
		Z: gomath.Sin(lat),
	}
	offset := math.Vec3{X: p.Offset, Y: p.Offset, Z: p.Offset}
	return dir.Scale(p.Radius + g.Alt).Add(offset)
}

// Project maps a pixel straight to Cartesian coordinates.
func (p Projection) Project(px formats.Pixel) math.Vec3 {
	return p.ToCartesian(p.LatLngAlt(px))
}
