// moonstl converts lunar elevation BMP tiles into binary STL meshes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Jeansidharta/moon-stl/internal/config"
	"github.com/Jeansidharta/moon-stl/internal/convert"
	"github.com/Jeansidharta/moon-stl/internal/logger"
	"github.com/Jeansidharta/moon-stl/internal/terrain"
	"github.com/Jeansidharta/moon-stl/pkg/formats"
	"github.com/Jeansidharta/moon-stl/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert":
		cmdConvert(args)
	case "info":
		cmdInfo(args)
	case "synth":
		cmdSynth(args)
	case "dump":
		cmdDump(args)
	case "init-config":
		cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`moonstl - lunar elevation raster to STL converter

Usage:
  moonstl <command> [options]

Commands:
  convert [flags] [in.bmp] [out.stl]  Convert a 24-bit BMP tile to binary STL
  info [-chunk-bytes N] <file.bmp>    Show raster header and chunk grid
  synth [-w W] [-h H] <out.bmp>       Write a synthetic gradient raster
  dump [-n N] <file.stl>              Show triangle count and bounds of an STL
  init-config [path]                  Write the default config file

Convert flags:
  -config <file>       Config file (default: ./moonstl.yaml or user config dir)
  -in, -out <file>     Input raster and output mesh
  -chunk-bytes <N>     Chunk edge length in bytes
  -debug               Debug logging
  -log-file <file>     Also log to a rotated file

Examples:
  moonstl convert sldem2015_512_00n_30n_000_045.bmp moon.stl
  moonstl info -chunk-bytes 384 tile.bmp
  moonstl synth -w 256 -h 256 test.bmp`)
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	fs.Parse(args)

	if fs.NArg() > 0 {
		flags.Input = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		flags.Output = fs.Arg(1)
	}

	cfg, err := config.Load(&flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	stats, err := convert.File(ctx, cfg, logger.Log)
	stop()
	if errors.Is(err, context.Canceled) {
		logger.Warn("Conversion interrupted",
			zap.String("output", cfg.Output.Path),
			zap.Int("chunks", stats.Chunks),
			zap.Uint32("triangles", stats.Triangles),
		)
		logger.Sync()
		os.Exit(130)
	}
	if err != nil {
		logger.Error("Conversion failed", zap.Error(err), zap.Uint32("triangles", stats.Triangles))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Conversion finished",
		zap.String("output", cfg.Output.Path),
		zap.Int("chunks", stats.Chunks),
		zap.Uint32("triangles", stats.Triangles),
		zap.Duration("elapsed", stats.Elapsed),
	)
	if !stats.Bounds.Empty() {
		logger.Debug("Mesh bounds",
			zap.Any("min", stats.Bounds.Min),
			zap.Any("max", stats.Bounds.Max),
		)
	}
	logger.Sync()
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	chunkBytes := fs.Int("chunk-bytes", formats.DefaultChunkBytes, "Chunk edge length in bytes")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: moonstl info [-chunk-bytes N] <file.bmp>")
		os.Exit(1)
	}

	file, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	h, err := formats.ReadBMPHeader(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Raster:      %s\n", fs.Arg(0))
	fmt.Printf("Size:        %dx%d pixels\n", h.Width, h.Height)
	fmt.Printf("Bits/pixel:  %d\n", h.BitsPerPixel)
	fmt.Printf("Planes:      %d\n", h.Planes)
	fmt.Printf("Compression: %d\n", h.Compression)
	fmt.Printf("Data offset: %d\n", h.DataOffset)
	fmt.Printf("Image size:  %d bytes\n", h.ImageSize)
	fmt.Printf("Resolution:  %dx%d px/m\n", h.XPixelsPerM, h.YPixelsPerM)

	g, err := formats.NewBMPGeometry(h, *chunkBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nCannot be chunked: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()
	fmt.Printf("Chunk size:  %d bytes (%d pixels)\n", g.ChunkBytes, g.PixelsPerChunk)
	fmt.Printf("Chunk grid:  %dx%d\n", g.ChunksX, g.ChunksY)
	fmt.Printf("Triangles:   %d\n", terrain.TrianglesPerChunk(g.PixelsPerChunk+2)*g.ChunksX*g.ChunksY)
}

func cmdSynth(args []string) {
	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	width := fs.Int("w", 256, "Width in pixels")
	height := fs.Int("h", 256, "Height in pixels")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: moonstl synth [-w W] [-h H] <out.bmp>")
		os.Exit(1)
	}

	if err := convert.Synthesize(fs.Arg(0), *width, *height, convert.Ramp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote: %s (%dx%d)\n", fs.Arg(0), *width, *height)
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	limit := fs.Int("n", 0, "Print the first N triangles")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: moonstl dump [-n N] <file.stl>")
		os.Exit(1)
	}

	mesh, err := formats.ReadSTLFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Mesh:      %s\n", fs.Arg(0))
	fmt.Printf("Triangles: %d\n", len(mesh.Triangles))
	if len(mesh.Triangles) == 0 {
		return
	}

	bounds := terrain.NewBounds()
	for _, t := range mesh.Triangles {
		for _, v := range t.Vertices {
			bounds.Extend(toVec3(v))
		}
	}
	fmt.Printf("Min:       %.3f %.3f %.3f\n", bounds.Min.X, bounds.Min.Y, bounds.Min.Z)
	fmt.Printf("Max:       %.3f %.3f %.3f\n", bounds.Max.X, bounds.Max.Y, bounds.Max.Z)

	for i, t := range mesh.Triangles {
		if i >= *limit {
			break
		}
		fmt.Printf("%6d n=%v v=%v\n", i, t.Normal, t.Vertices)
	}
}

func cmdInitConfig(args []string) {
	cfg := config.Default()

	var err error
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
		err = cfg.SaveTo(path)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}

func toVec3(v [3]float32) math.Vec3 {
	return math.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
