package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config     string
	Input      string
	Output     string
	ChunkBytes int
	Debug      bool
	LogFile    string
}

// Register adds the override flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.StringVar(&f.Input, "in", "", "Input BMP raster")
	fs.StringVar(&f.Output, "out", "", "Output STL file")
	fs.IntVar(&f.ChunkBytes, "chunk-bytes", 0, "Chunk edge length in bytes")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this file (rotated)")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Input != "" {
		cfg.Input.Path = f.Input
	}
	if f.Output != "" {
		cfg.Output.Path = f.Output
	}
	if f.ChunkBytes > 0 {
		cfg.Input.ChunkBytes = f.ChunkBytes
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
