package detection

import (
	"context"
	"log/slog"
	"slices"

	"vidtrack/internal/analysis"
	"vidtrack/internal/logging"
	"vidtrack/internal/media"
	"vidtrack/internal/services"
	"vidtrack/internal/tracking"
)

// DefaultMinConfidence drops weak object detections before tracking.
const DefaultMinConfidence = 0.25

const stageName = "detect"

// FaceDetector finds face regions in one frame.
type FaceDetector interface {
	DetectFaces(ctx context.Context, frame media.Frame) ([]tracking.Box, error)
}

// ObjectDetector finds labelled objects in one frame.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, frame media.Frame) ([]tracking.Detection, error)
}

// Output collects everything the driver observed for one job.
type Output struct {
	Faces         []analysis.FaceObservation
	Objects       []tracking.Observation
	Dropped       int // detections below the confidence floor
	TracksCreated int
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	MinConfidence float64
	Tracking      tracking.Options
}

// Driver walks frames in order and invokes both detectors once per frame.
type Driver struct {
	faces   FaceDetector
	objects ObjectDetector
	opts    DriverOptions
	logger  *slog.Logger
}

// NewDriver returns a driver over the supplied detectors. A non-positive
// MinConfidence selects DefaultMinConfidence.
func NewDriver(faces FaceDetector, objects ObjectDetector, opts DriverOptions, logger *slog.Logger) *Driver {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	return &Driver{
		faces:   faces,
		objects: objects,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "detection"),
	}
}

// Run detects faces and objects for every frame. Each call owns a fresh
// tracker. The first detector error aborts the run.
func (d *Driver) Run(ctx context.Context, frames []media.Frame) (Output, error) {
	out := Output{
		Faces:   []analysis.FaceObservation{},
		Objects: []tracking.Observation{},
	}
	if len(frames) == 0 {
		return out, nil
	}
	logger := logging.WithContext(ctx, d.logger)

	ordered := slices.Clone(frames)
	slices.SortStableFunc(ordered, func(a, b media.Frame) int { return a.Index - b.Index })

	tracker := tracking.NewTracker(d.opts.Tracking)
	for _, frame := range ordered {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		boxes, err := d.faces.DetectFaces(ctx, frame)
		if err != nil {
			return out, d.frameError(frame, "detect faces", err)
		}
		for _, box := range boxes {
			out.Faces = append(out.Faces, analysis.FaceObservation{Frame: frame.Index, FrameName: frame.Name, Box: box})
		}

		raw, err := d.objects.DetectObjects(ctx, frame)
		if err != nil {
			return out, d.frameError(frame, "detect objects", err)
		}
		kept := raw[:0:0]
		for _, det := range raw {
			if det.Confidence < d.opts.MinConfidence {
				out.Dropped++
				continue
			}
			kept = append(kept, det)
		}
		observed := tracker.Update(frame.Index, frame.Name, kept)
		out.Objects = append(out.Objects, observed...)

		logger.Debug("frame processed",
			logging.Int(logging.FieldFrame, frame.Index),
			logging.Int("faces", len(boxes)),
			logging.Int("objects", len(observed)),
			logging.Int("dropped", len(raw)-len(kept)),
			logging.Int("live_tracks", tracker.Live()),
		)
	}
	out.TracksCreated = tracker.Created()

	logger.Info("detection complete",
		logging.Int("frames", len(ordered)),
		logging.Int("faces", len(out.Faces)),
		logging.Int("objects", len(out.Objects)),
		logging.Int("tracks", out.TracksCreated),
		logging.Int("dropped", out.Dropped),
		logging.String(logging.FieldEventType, "detection_complete"),
	)
	return out, nil
}

func (d *Driver) frameError(frame media.Frame, op string, err error) error {
	marker := services.ErrExternalTool
	if services.Kind(err) == services.KindTimeout {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, stageName, op, "frame "+frame.Name, err)
}
