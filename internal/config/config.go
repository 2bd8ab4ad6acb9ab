// Package config handles converter configuration loading and management.
package config

import (
	"github.com/Jeansidharta/moon-stl/internal/terrain"
	"github.com/Jeansidharta/moon-stl/pkg/formats"
)

// Config holds all converter settings.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Projection ProjectionConfig `yaml:"projection"`
	Range      RangeConfig      `yaml:"range"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig describes the source raster.
type InputConfig struct {
	Path       string `yaml:"path"`
	ChunkBytes int    `yaml:"chunk_bytes"` // chunk edge length in bytes
}

// OutputConfig describes the STL destination.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Header string `yaml:"header"` // written into the 80-byte STL header
}

// ProjectionConfig holds the sphere and tile georeference.
type ProjectionConfig struct {
	OriginLat       float64 `yaml:"origin_lat"`
	OriginLng       float64 `yaml:"origin_lng"`
	MinLat          float64 `yaml:"min_lat"`
	MinLng          float64 `yaml:"min_lng"`
	DegreesPerPixel float64 `yaml:"degrees_per_pixel"`
	Radius          float64 `yaml:"radius"`
	MinAltitude     float64 `yaml:"min_altitude"`
	MaxAltitude     float64 `yaml:"max_altitude"`
	Offset          float64 `yaml:"offset"`
}

// RangeConfig bounds the chunks converted. End values are exclusive; a
// negative end means the full grid.
type RangeConfig struct {
	StartX int `yaml:"start_x"`
	StartY int `yaml:"start_y"`
	EndX   int `yaml:"end_x"`
	EndY   int `yaml:"end_y"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config for the lunar elevation tile.
func Default() *Config {
	proj := terrain.DefaultProjection()
	return &Config{
		Input: InputConfig{
			Path:       "sldem2015_512_00n_30n_000_045.bmp",
			ChunkBytes: formats.DefaultChunkBytes,
		},
		Output: OutputConfig{
			Path: "stl.stl",
		},
		Projection: ProjectionConfig{
			OriginLat:       proj.OriginLat,
			OriginLng:       proj.OriginLng,
			MinLat:          proj.MinLat,
			MinLng:          proj.MinLng,
			DegreesPerPixel: proj.DegreesPerPixel,
			Radius:          proj.Radius,
			MinAltitude:     proj.MinAltitude,
			MaxAltitude:     proj.MaxAltitude,
			Offset:          proj.Offset,
		},
		Range: RangeConfig{
			EndX: -1,
			EndY: -1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// TerrainProjection converts the projection settings for the terrain package.
func (p ProjectionConfig) TerrainProjection() terrain.Projection {
	return terrain.Projection{
		OriginLat:       p.OriginLat,
		OriginLng:       p.OriginLng,
		MinLat:          p.MinLat,
		MinLng:          p.MinLng,
		DegreesPerPixel: p.DegreesPerPixel,
		Radius:          p.Radius,
		MinAltitude:     p.MinAltitude,
		MaxAltitude:     p.MaxAltitude,
		Offset:          p.Offset,
	}
}
