// warpdemo applies a deformation to a plain image file without running
// face detection: landmarks come from a YAML file instead of a model.
// Useful for eyeballing renderer output and comparing the mesh and
// thin-plate spline backends.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/deform"
	"github.com/dudu/facewarp/internal/geom"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/tps"
	"github.com/dudu/facewarp/internal/triangulate"
	"github.com/dudu/facewarp/internal/warp"
)

type cliConfig struct {
	InputPath     string
	OutputPath    string
	LandmarksPath string
	ParamsPath    string
	Method        string
	Mode          string
}

// landmarkFile is the YAML shape for hand-authored landmarks
type landmarkFile struct {
	Jawline   []pt `yaml:"jawline"`
	LeftBrow  []pt `yaml:"left_brow"`
	RightBrow []pt `yaml:"right_brow"`
	Nose      []pt `yaml:"nose"`
	LeftEye   []pt `yaml:"left_eye"`
	RightEye  []pt `yaml:"right_eye"`
	Mouth     []pt `yaml:"mouth"`
}

type pt struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func main() {
	cfg := parseFlags()
	if cfg.InputPath == "" || cfg.OutputPath == "" || cfg.LandmarksPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --input, --output and --landmarks are required")
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
	flag.StringVar(&cfg.InputPath, "input", "", "Input PNG image (required)")
	flag.StringVar(&cfg.InputPath, "i", "", "Input PNG image (shorthand)")
	flag.StringVar(&cfg.OutputPath, "output", "", "Output PNG image (required)")
	flag.StringVar(&cfg.OutputPath, "o", "", "Output PNG image (shorthand)")
	flag.StringVar(&cfg.LandmarksPath, "landmarks", "", "YAML landmark file (required)")
	flag.StringVar(&cfg.LandmarksPath, "l", "", "YAML landmark file (shorthand)")
	flag.StringVar(&cfg.ParamsPath, "params", "", "YAML deformation parameters")
	flag.StringVar(&cfg.ParamsPath, "p", "", "YAML deformation parameters (shorthand)")
	flag.StringVar(&cfg.Method, "method", "mesh", "Warp method: mesh or tps")
	flag.StringVar(&cfg.Mode, "mode", "hybrid", "Mesh render mode: forward, backward or hybrid")
	flag.Parse()
	return cfg
}

func run(cli cliConfig) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	landmarks, err := loadLandmarks(cli.LandmarksPath)
	if err != nil {
		return err
	}

	params := deform.Defaults()
	if cli.ParamsPath != "" {
		if params, err = config.LoadParameters(cli.ParamsPath); err != nil {
			return err
		}
	}

	src, err := loadPNG(cli.InputPath)
	if err != nil {
		return err
	}

	deformed, err := deform.Deform(&landmarks, params)
	if err != nil {
		return err
	}

	var out *warp.RasterBuffer
	switch cli.Method {
	case "mesh":
		out, err = warpMesh(src, landmarks, deformed, cli.Mode)
	case "tps":
		out, err = warpTPS(src, landmarks, deformed)
	default:
		return fmt.Errorf("unknown method %q (use mesh or tps)", cli.Method)
	}
	if err != nil {
		return err
	}

	return writePNG(cli.OutputPath, out)
}

func warpMesh(src *warp.RasterBuffer, landmarks, deformed landmark.FaceLandmarks, modeName string) (*warp.RasterBuffer, error) {
	mode, err := warp.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	mesh, err := triangulate.TriangulateFace(landmarks.Points(), src.Width, src.Height)
	if err != nil {
		return nil, err
	}
	targets := make([]geom.Point, len(mesh.Vertices))
	copy(targets, mesh.Vertices)
	copy(targets, deformed.Points())

	eng := warp.NewEngine(warp.Options{Mode: mode})
	out, stats, err := eng.Warp(src, mesh, targets)
	if err != nil {
		return nil, err
	}
	slog.Info("mesh warp done", "triangles", stats.TrianglesDrawn,
		"degenerate", stats.DegenerateSkipped, "fallback_pixels", stats.FallbackPixels)
	return out, nil
}

// warpTPS resamples through a spline fitted in the backward direction,
// deformed positions to originals, with the image corners pinned so
// the border stays put.
func warpTPS(src *warp.RasterBuffer, landmarks, deformed landmark.FaceLandmarks) (*warp.RasterBuffer, error) {
	source := landmarks.Points()
	target := deformed.Points()
	for _, c := range triangulate.BorderPoints(src.Width, src.Height) {
		source = append(source, c)
		target = append(target, c)
	}

	spline, err := tps.Fit(target, source)
	if err != nil {
		return nil, err
	}

	out := warp.NewRasterBuffer(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			sp := spline.Apply(geom.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			r, g, b, a := warp.Bilinear(src, sp.X, sp.Y)
			out.SetRGBA(x, y, r, g, b, a)
		}
	}
	slog.Info("tps warp done", "controls", len(source))
	return out, nil
}

func loadLandmarks(path string) (landmark.FaceLandmarks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return landmark.FaceLandmarks{}, fmt.Errorf("reading landmarks: %w", err)
	}
	var lf landmarkFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return landmark.FaceLandmarks{}, fmt.Errorf("parsing landmarks %s: %w", path, err)
	}
	l := landmark.FaceLandmarks{
		Jawline:   toPoints(lf.Jawline),
		LeftBrow:  toPoints(lf.LeftBrow),
		RightBrow: toPoints(lf.RightBrow),
		Nose:      toPoints(lf.Nose),
		LeftEye:   toPoints(lf.LeftEye),
		RightEye:  toPoints(lf.RightEye),
		Mouth:     toPoints(lf.Mouth),
	}
	if err := l.Validate(); err != nil {
		return landmark.FaceLandmarks{}, err
	}
	return l, nil
}

func toPoints(pts []pt) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = geom.Point{X: p.X, Y: p.Y}
	}
	return out
}

func loadPNG(path string) (*warp.RasterBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return warp.FromImage(img), nil
}

func writePNG(path string, b *warp.RasterBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, b.ToImage()); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
