// Package convert drives the raster-to-mesh conversion chunk by chunk.
package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Jeansidharta/moon-stl/internal/config"
	"github.com/Jeansidharta/moon-stl/internal/terrain"
	"github.com/Jeansidharta/moon-stl/pkg/formats"
)

// ChunkReader yields padded pixel grids by chunk coordinate.
type ChunkReader interface {
	ReadChunk(cx, cy int) ([][]formats.Pixel, error)
}

// TriangleWriter accepts triangles in output order.
type TriangleWriter interface {
	WriteTriangle(t formats.STLTriangle) error
	Count() uint32
}

// Stats summarizes a conversion run.
type Stats struct {
	Chunks    int
	Triangles uint32
	Elapsed   time.Duration
	Bounds    terrain.Bounds
}

// Converter turns chunks from Reader into triangles on Writer. It never
// closes either; the owner finalizes the writer once after Run.
type Converter struct {
	Reader     ChunkReader
	Writer     TriangleWriter
	Projection terrain.Projection
	Log        *zap.Logger
	Monitor    *Monitor
}

// Run processes chunks in order. It stops at the first error, or before the
// next chunk once ctx is done.
func (c *Converter) Run(ctx context.Context, chunks []ChunkCoord) (stats Stats, err error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	monitor := c.Monitor
	if monitor == nil {
		monitor = NewMonitor()
	}

	stats.Bounds = terrain.NewBounds()
	begin := time.Now()
	defer func() {
		stats.Elapsed = time.Since(begin)
		stats.Triangles = c.Writer.Count()
	}()

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		fields := []zap.Field{zap.Int("x", chunk.X), zap.Int("y", chunk.Y)}
		if monitor.Samples() > 0 {
			eta := monitor.Estimate(len(chunks) - i)
			fields = append(fields, zap.Duration("eta", eta.Round(time.Second)))
		}
		log.Info("Processing chunk", fields...)

		monitor.Start()
		if err := c.processChunk(chunk, &stats.Bounds); err != nil {
			return stats, err
		}
		monitor.End()
		stats.Chunks++

		log.Debug("Chunk done",
			zap.Int("x", chunk.X),
			zap.Int("y", chunk.Y),
			zap.Uint32("triangles", c.Writer.Count()),
		)
	}

	return stats, nil
}

func (c *Converter) processChunk(chunk ChunkCoord, bounds *terrain.Bounds) error {
	pixels, err := c.Reader.ReadChunk(chunk.X, chunk.Y)
	if err != nil {
		return err
	}

	tris := terrain.BuildChunk(c.Projection, pixels)
	for _, t := range tris {
		if err := c.Writer.WriteTriangle(t.STL()); err != nil {
			return fmt.Errorf("chunk (%d, %d): %w", chunk.X, chunk.Y, err)
		}
	}
	bounds.ExtendTriangles(tris)
	return nil
}

// File converts cfg.Input.Path into cfg.Output.Path. The STL is finalized
// even when the run stops early, so its count matches the triangles written.
func File(ctx context.Context, cfg *config.Config, log *zap.Logger) (stats Stats, err error) {
	if log == nil {
		log = zap.NewNop()
	}

	reader, err := formats.OpenBMP(cfg.Input.Path, cfg.Input.ChunkBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("opening raster %s: %w", cfg.Input.Path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(reader))

	h, g := reader.Header, reader.Geometry
	log.Info("Opened raster",
		zap.String("path", cfg.Input.Path),
		zap.Uint32("width", h.Width),
		zap.Uint32("height", h.Height),
		zap.Int("bytes", int(h.Width)*int(h.Height)*g.BytesPerPixel),
	)
	log.Info("Chunk grid",
		zap.Int("chunk_bytes", g.ChunkBytes),
		zap.Int("chunks_x", g.ChunksX),
		zap.Int("chunks_y", g.ChunksY),
	)

	writer, err := formats.CreateSTL(cfg.Output.Path, cfg.Output.Header)
	if err != nil {
		return Stats{}, fmt.Errorf("creating mesh %s: %w", cfg.Output.Path, err)
	}
	defer func() {
		// Close repeats a failed write's error, which Run already returned.
		if cerr := writer.Close(); cerr != nil && !errors.Is(err, cerr) {
			err = multierr.Append(err, cerr)
		}
	}()

	r := Range{
		StartX: cfg.Range.StartX,
		StartY: cfg.Range.StartY,
		EndX:   cfg.Range.EndX,
		EndY:   cfg.Range.EndY,
	}
	conv := &Converter{
		Reader:     reader,
		Writer:     writer,
		Projection: cfg.Projection.TerrainProjection(),
		Log:        log,
		Monitor:    NewMonitor(),
	}
	return conv.Run(ctx, RowMajor(r, g.ChunksX, g.ChunksY))
}
