package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/pipeline"
)

type cliConfig struct {
	InputPath  string
	OutputPath string
	ConfigPath string
	ParamsPath string
	Mode       string
	EdgeBand   int
	Verbose    bool
}

func main() {
	cfg := parseFlags()

	if cfg.InputPath == "" || cfg.OutputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --input and --output flags are required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() cliConfig {
	cfg := cliConfig{}

	flag.StringVar(&cfg.InputPath, "input", "", "Input image (required)")
	flag.StringVar(&cfg.InputPath, "i", "", "Input image (shorthand)")
	flag.StringVar(&cfg.OutputPath, "output", "", "Output image (required)")
	flag.StringVar(&cfg.OutputPath, "o", "", "Output image (shorthand)")
	flag.StringVar(&cfg.ConfigPath, "config", "", "YAML configuration file")
	flag.StringVar(&cfg.ConfigPath, "c", "", "YAML configuration file (shorthand)")
	flag.StringVar(&cfg.ParamsPath, "params", "", "YAML deformation parameters (overrides config)")
	flag.StringVar(&cfg.ParamsPath, "p", "", "YAML deformation parameters (shorthand)")
	flag.StringVar(&cfg.Mode, "mode", "", "Render mode: forward, backward or hybrid")
	flag.StringVar(&cfg.Mode, "m", "", "Render mode (shorthand)")
	flag.IntVar(&cfg.EdgeBand, "band", 0, "Hybrid edge band width in pixels (0 = default)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&cfg.Verbose, "v", false, "Enable debug logging (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "facewarp - Landmark-driven facial image warping\n\n")
		fmt.Fprintf(os.Stderr, "Usage: facewarp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  facewarp --input face.jpg --output out.jpg --params eyes.yaml\n")
		fmt.Fprintf(os.Stderr, "  facewarp -i face.jpg -o out.jpg -c config.yaml -m backward\n")
	}

	flag.Parse()
	return cfg
}

func run(cli cliConfig) error {
	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if cli.ConfigPath != "" {
		loaded, err := config.Load(cli.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.Models.Detector == "" {
		cfg.Models.Detector = "models/scrfd_2.5g.onnx"
	}
	if cfg.Models.Landmarks == "" {
		cfg.Models.Landmarks = "models/2d106det.onnx"
	}
	if cli.ParamsPath != "" {
		params, err := config.LoadParameters(cli.ParamsPath)
		if err != nil {
			return err
		}
		cfg.Deform = params
	}
	if cli.Mode != "" {
		cfg.Render.Mode = cli.Mode
	}
	if cli.EdgeBand > 0 {
		cfg.Render.EdgeBand = cli.EdgeBand
	}

	img := gocv.IMRead(cli.InputPath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("failed to load image: %s", cli.InputPath)
	}
	defer img.Close()

	slog.Info("loading models", "detector", cfg.Models.Detector, "landmarks", cfg.Models.Landmarks)
	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Close()

	if err := p.Process(&img); err != nil {
		return err
	}

	timing := p.LastTiming()
	stats := p.LastStats()
	slog.Info("frame processed",
		"detect_ms", timing.Detection.Milliseconds(),
		"deform_ms", timing.Deformation.Milliseconds(),
		"render_ms", timing.Render.Milliseconds(),
		"total_ms", timing.Total.Milliseconds(),
		"triangles", stats.TrianglesDrawn,
		"fallback_pixels", stats.FallbackPixels)

	if ok := gocv.IMWrite(cli.OutputPath, img); !ok {
		return fmt.Errorf("failed to write image: %s", cli.OutputPath)
	}
	slog.Info("wrote output", "path", cli.OutputPath)
	return nil
}
