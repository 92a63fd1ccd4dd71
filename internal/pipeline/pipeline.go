// Package pipeline wires detection, deformation, triangulation and
// rendering into a per-frame face warping pass.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/deform"
	"github.com/dudu/facewarp/internal/geom"
	"github.com/dudu/facewarp/internal/inference"
	"github.com/dudu/facewarp/internal/iris"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/triangulate"
	"github.com/dudu/facewarp/internal/warp"
)

// ErrNoFace is returned when the detector finds no face in the frame
var ErrNoFace = errors.New("pipeline: no face detected")

// ErrLowConfidence is returned when landmark confidence falls below
// the configured floor. The frame is left untouched.
var ErrLowConfidence = errors.New("pipeline: landmark confidence below threshold")

// Timing holds per-stage durations for the last processed frame
type Timing struct {
	Detection     time.Duration
	Deformation   time.Duration
	Triangulation time.Duration
	Render        time.Duration
	Total         time.Duration
}

// Pipeline orchestrates the face warping process. Multiple pipelines
// can coexist in one process; each owns its own detector sessions.
type Pipeline struct {
	cfg      config.Config
	detector *landmark.Detector
	engine   *warp.Engine
	shifter  *iris.Shifter

	mu         sync.Mutex
	params     deform.Parameters
	lastTiming Timing
	lastStats  warp.Stats
}

// New creates a pipeline from a validated configuration
func New(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := warp.ParseMode(cfg.Render.Mode)
	if err != nil {
		return nil, err
	}

	if err := inference.Initialize(cfg.Models.OrtLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize inference: %w", err)
	}

	det, err := landmark.NewDetector(landmark.DetectorConfig{
		FaceModelPath:     cfg.Models.Detector,
		LandmarkModelPath: cfg.Models.Landmarks,
	})
	if err != nil {
		inference.Shutdown()
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	return &Pipeline{
		cfg:      cfg,
		detector: det,
		engine:   warp.NewEngine(warp.Options{Mode: mode, EdgeBand: cfg.Render.EdgeBand}),
		shifter:  iris.NewShifter(),
		params:   cfg.Deform,
	}, nil
}

// SetParameters swaps the deformation parameters used for subsequent
// frames
func (p *Pipeline) SetParameters(params deform.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.params = params
	p.mu.Unlock()
	return nil
}

// Process warps the face in a frame in place. On any error the frame
// is left unmodified.
func (p *Pipeline) Process(frame *gocv.Mat) error {
	totalStart := time.Now()
	var timing Timing

	p.mu.Lock()
	params := p.params
	p.mu.Unlock()

	detectStart := time.Now()
	landmarks, conf, err := p.detector.Detect(*frame)
	timing.Detection = time.Since(detectStart)
	if err != nil {
		if errors.Is(err, landmark.ErrNoFace) {
			return ErrNoFace
		}
		return fmt.Errorf("detection failed: %w", err)
	}
	if p.cfg.MinConfidence > 0 && conf < p.cfg.MinConfidence {
		return fmt.Errorf("%w: %.3f < %.3f", ErrLowConfidence, conf, p.cfg.MinConfidence)
	}
	if warnings := landmark.CheckAnatomy(&landmarks); len(warnings) > 0 {
		slog.Warn("anatomy checks failed", "warnings", warnings)
	}

	// With the pixel iris layer active, the mesh deformation must not
	// also move the inner eye vertices.
	meshParams := params
	if p.cfg.Render.IrisLayer {
		meshParams.LeftEye.IrisX, meshParams.LeftEye.IrisY = 0, 0
		meshParams.RightEye.IrisX, meshParams.RightEye.IrisY = 0, 0
	}

	deformStart := time.Now()
	deformed, err := deform.Deform(&landmarks, meshParams)
	timing.Deformation = time.Since(deformStart)
	if err != nil {
		return fmt.Errorf("deformation failed: %w", err)
	}

	triStart := time.Now()
	mesh, err := triangulate.TriangulateFace(landmarks.Points(), frame.Cols(), frame.Rows())
	timing.Triangulation = time.Since(triStart)
	if err != nil {
		return fmt.Errorf("triangulation failed: %w", err)
	}

	// Border vertices stay fixed; only the landmark prefix moves.
	targets := make([]geom.Point, len(mesh.Vertices))
	copy(targets, mesh.Vertices)
	copy(targets, deformed.Points())

	renderStart := time.Now()
	src, err := warp.FromMat(*frame)
	if err != nil {
		return fmt.Errorf("reading frame: %w", err)
	}
	out, stats, err := p.engine.Warp(src, mesh, targets)
	if err != nil {
		return fmt.Errorf("warp failed: %w", err)
	}
	warped, err := warp.ToMat(out)
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	defer warped.Close()

	if p.cfg.Render.IrisLayer {
		ref := landmarks.FaceSize()
		if err := p.shiftIris(&warped, deformed.LeftEye, params.LeftEye, ref); err != nil {
			slog.Warn("left iris shift skipped", "error", err)
		}
		if err := p.shiftIris(&warped, deformed.RightEye, params.RightEye, ref); err != nil {
			slog.Warn("right iris shift skipped", "error", err)
		}
	}
	timing.Render = time.Since(renderStart)

	warped.CopyTo(frame)
	timing.Total = time.Since(totalStart)

	p.mu.Lock()
	p.lastTiming = timing
	p.lastStats = stats
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) shiftIris(frame *gocv.Mat, eye []geom.Point, ep deform.EyeParams, ref float64) error {
	if ep.IrisX == 0 && ep.IrisY == 0 {
		return nil
	}
	dx, dy := iris.ShiftOffset(ep.IrisX, ep.IrisY, ref)
	return p.shifter.Shift(frame, eye, dx, dy)
}

// LastTiming returns timing from the last Process call
func (p *Pipeline) LastTiming() Timing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTiming
}

// LastStats returns render statistics from the last Process call
func (p *Pipeline) LastStats() warp.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStats
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error
	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := inference.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
