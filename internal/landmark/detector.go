package landmark

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/geom"
	"github.com/dudu/facewarp/internal/inference"
)

// ErrNoFace is returned when no face candidate survives score
// thresholding
var ErrNoFace = errors.New("landmark: no face detected")

// Detector locates a face with SCRFD and extracts 106 landmarks with
// insightface's 2d106det model, then groups them into the named parts
// the engine consumes.
type Detector struct {
	faceSession     *inference.Session
	landmarkSession *inference.Session
	detectSize      int
	landmarkSize    int
	confThreshold   float32
	nmsThreshold    float32
	strides         []int
	numAnchors      int
}

// DetectorConfig configures model paths and thresholds
type DetectorConfig struct {
	FaceModelPath     string
	LandmarkModelPath string
	DetectSize        int
	ConfThreshold     float32
	NMSThreshold      float32
}

// 2d106det point layout, grouped into the engine's named parts. The
// contour runs 0..32 left ear to right ear; sequence order inside each
// group is the model's and is preserved because the deformer relies on
// adjacency.
var groupRanges = map[Part][2]int{
	Jawline:   {0, 33},
	LeftEye:   {33, 43},
	LeftBrow:  {43, 52},
	Mouth:     {52, 72},
	Nose:      {72, 87},
	RightEye:  {87, 97},
	RightBrow: {97, 106},
}

// NewDetector creates a detector from SCRFD and 2d106det ONNX models
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if cfg.DetectSize == 0 {
		cfg.DetectSize = 640
	}

	faceSession, err := inference.NewSession(cfg.FaceModelPath,
		[]string{"input.1"},
		[]string{
			"score_8", "score_16", "score_32",
			"bbox_8", "bbox_16", "bbox_32",
			"kps_8", "kps_16", "kps_32",
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create face session: %w", err)
	}

	landmarkSession, err := inference.NewSession(cfg.LandmarkModelPath,
		[]string{"data"}, []string{"fc1"})
	if err != nil {
		faceSession.Destroy()
		return nil, fmt.Errorf("failed to create landmark session: %w", err)
	}

	return &Detector{
		faceSession:     faceSession,
		landmarkSession: landmarkSession,
		detectSize:      cfg.DetectSize,
		landmarkSize:    192,
		confThreshold:   cfg.ConfThreshold,
		nmsThreshold:    cfg.NMSThreshold,
		strides:         []int{8, 16, 32},
		numAnchors:      2,
	}, nil
}

// box is an SCRFD face candidate
type box struct {
	x1, y1, x2, y2 float32
	score          float32
}

func (b box) area() float32 {
	return (b.x2 - b.x1) * (b.y2 - b.y1)
}

// Detect finds the highest-scoring face and returns its grouped
// landmarks plus the detection confidence
func (d *Detector) Detect(img gocv.Mat) (FaceLandmarks, float64, error) {
	faces, err := d.detectFaces(img)
	if err != nil {
		return FaceLandmarks{}, 0, err
	}
	if len(faces) == 0 {
		return FaceLandmarks{}, 0, ErrNoFace
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.score > best.score {
			best = f
		}
	}

	raw, err := d.detectLandmarks(img, best)
	if err != nil {
		return FaceLandmarks{}, 0, err
	}

	var out FaceLandmarks
	for part, r := range groupRanges {
		group := make([]geom.Point, r[1]-r[0])
		copy(group, raw[r[0]:r[1]])
		out.setGroup(part, group)
	}
	if err := out.Validate(); err != nil {
		return FaceLandmarks{}, 0, err
	}
	return out, float64(best.score), nil
}

// detectFaces runs SCRFD over a letterboxed resize of the image
func (d *Detector) detectFaces(img gocv.Mat) ([]box, error) {
	origW := img.Cols()
	origH := img.Rows()

	blob, scale := d.preprocessFace(img)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(d.detectSize), int64(d.detectSize)),
		bytesToFloat32(blob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	tensors := make([]*ort.Tensor[float32], 9)
	for i := 0; i < 3; i++ {
		fm := d.detectSize / d.strides[i]
		n := int64(fm * fm * d.numAnchors)

		score, err := inference.CreateEmptyTensor[float32]([]int64{n, 1})
		if err != nil {
			return nil, err
		}
		bbox, err := inference.CreateEmptyTensor[float32]([]int64{n, 4})
		if err != nil {
			return nil, err
		}
		kps, err := inference.CreateEmptyTensor[float32]([]int64{n, 10})
		if err != nil {
			return nil, err
		}
		outputs[i], outputs[i+3], outputs[i+6] = score, bbox, kps
		tensors[i], tensors[i+3], tensors[i+6] = score, bbox, kps
	}
	defer func() {
		for _, t := range tensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	if err := d.faceSession.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("face inference failed: %w", err)
	}

	var faces []box
	for level := 0; level < 3; level++ {
		stride := d.strides[level]
		fm := d.detectSize / stride
		scores := tensors[level].GetData()
		bboxes := tensors[level+3].GetData()

		idx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < d.numAnchors; a++ {
					score := sigmoid(scores[idx])
					if score > d.confThreshold {
						cx := (float32(x) + 0.5) * float32(stride)
						cy := (float32(y) + 0.5) * float32(stride)
						bi := idx * 4
						faces = append(faces, box{
							x1:    clamp32((cx-bboxes[bi]*float32(stride))/scale, 0, float32(origW)),
							y1:    clamp32((cy-bboxes[bi+1]*float32(stride))/scale, 0, float32(origH)),
							x2:    clamp32((cx+bboxes[bi+2]*float32(stride))/scale, 0, float32(origW)),
							y2:    clamp32((cy+bboxes[bi+3]*float32(stride))/scale, 0, float32(origH)),
							score: score,
						})
					}
					idx++
				}
			}
		}
	}

	return suppress(faces, d.nmsThreshold), nil
}

// preprocessFace letterboxes and normalizes to the SCRFD input blob
func (d *Detector) preprocessFace(img gocv.Mat) (gocv.Mat, float32) {
	h, w := img.Rows(), img.Cols()
	longest := h
	if w > h {
		longest = w
	}
	scale := float32(d.detectSize) / float32(longest)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(int(float32(w)*scale), int(float32(h)*scale)), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(d.detectSize, d.detectSize, gocv.MatTypeCV8UC3)
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))
	roi := padded.Region(image.Rect(0, 0, resized.Cols(), resized.Rows()))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(padded, &rgb, gocv.ColorBGRToRGB)
	padded.Close()

	blob := gocv.NewMat()
	rgb.ConvertTo(&blob, gocv.MatTypeCV32FC3)
	rgb.Close()
	gocv.AddWeighted(blob, 1.0/128.0, blob, 0, -127.5/128.0, &blob)

	nchw := gocv.BlobFromImage(blob, 1.0, image.Pt(d.detectSize, d.detectSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	blob.Close()

	return nchw, scale
}

// detectLandmarks crops the face with a 1.5x expansion, runs 2d106det
// and maps the output back into original image coordinates
func (d *Detector) detectLandmarks(img gocv.Mat, face box) ([]geom.Point, error) {
	w := face.x2 - face.x1
	h := face.y2 - face.y1
	cx := (face.x1 + face.x2) / 2
	cy := (face.y1 + face.y2) / 2
	maxDim := w
	if h > w {
		maxDim = h
	}
	scale := float32(d.landmarkSize) / (maxDim * 1.5)

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, float64(scale))
	m.SetDoubleAt(0, 2, float64(d.landmarkSize)/2-float64(cx*scale))
	m.SetDoubleAt(1, 1, float64(scale))
	m.SetDoubleAt(1, 2, float64(d.landmarkSize)/2-float64(cy*scale))

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, m, image.Pt(d.landmarkSize, d.landmarkSize))
	m.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(aligned, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	floatMat := gocv.NewMat()
	rgb.ConvertTo(&floatMat, gocv.MatTypeCV32FC3)
	defer floatMat.Close()
	gocv.AddWeighted(floatMat, 1.0/128.0, floatMat, 0, -127.5/128.0, &floatMat)

	blob := gocv.BlobFromImage(floatMat, 1.0, image.Pt(d.landmarkSize, d.landmarkSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(d.landmarkSize), int64(d.landmarkSize)),
		bytesToFloat32(blob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 212})
	if err != nil {
		return nil, err
	}
	defer outputTensor.Destroy()

	if err := d.landmarkSession.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("landmark inference failed: %w", err)
	}

	// Model output is [-1, 1] in crop space; undo the crop transform.
	output := outputTensor.GetData()
	half := float32(d.landmarkSize) / 2
	pts := make([]geom.Point, 106)
	for i := 0; i < 106; i++ {
		x := (output[i*2] + 1) * half
		y := (output[i*2+1] + 1) * half
		pts[i] = geom.Point{
			X: float64((x-half)/scale + cx),
			Y: float64((y-half)/scale + cy),
		}
	}
	return pts, nil
}

// Close releases both model sessions
func (d *Detector) Close() error {
	err := d.faceSession.Destroy()
	if err2 := d.landmarkSession.Destroy(); err == nil {
		err = err2
	}
	return err
}

// suppress performs non-maximum suppression on face candidates
func suppress(faces []box, iouThreshold float32) []box {
	if len(faces) == 0 {
		return faces
	}
	sort.Slice(faces, func(i, j int) bool {
		return faces[i].score > faces[j].score
	})

	keep := make([]bool, len(faces))
	for i := range keep {
		keep[i] = true
	}
	for i := range faces {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(faces); j++ {
			if keep[j] && iou(faces[i], faces[j]) > iouThreshold {
				keep[j] = false
			}
		}
	}

	out := faces[:0]
	for i, f := range faces {
		if keep[i] {
			out = append(out, f)
		}
	}
	return out
}

func iou(a, b box) float32 {
	x1 := max32(a.x1, b.x1)
	y1 := max32(a.y1, b.y1)
	x2 := min32(a.x2, b.x2)
	y2 := min32(a.y2, b.y2)
	if x1 >= x2 || y1 >= y2 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp32(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
