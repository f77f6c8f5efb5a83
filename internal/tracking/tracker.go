package tracking

import "slices"

// DefaultMaxAge is the number of frames a track may stay unmatched.
const DefaultMaxAge = 5

// DefaultIoUThreshold is the minimum overlap, exclusive, for a match.
const DefaultIoUThreshold = 0.3

// Detection is one raw object detection within a frame.
type Detection struct {
	Box        Box
	Label      string
	Confidence float64
}

// Observation records one detection together with the track that owns it.
type Observation struct {
	Frame      int     `json:"frame"`
	FrameName  string  `json:"frame_name"`
	ID         int     `json:"id"`
	Label      string  `json:"label"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Options configures a Tracker.
type Options struct {
	MaxAge       int
	IoUThreshold float64
}

type track struct {
	id      int
	box     Box
	age     int
	claimed uint64 // update generation that last claimed the track
}

// Tracker maintains live tracks for a single job. It is not safe for
// concurrent use.
type Tracker struct {
	maxAge    int
	threshold float64
	tracks    []*track // ascending id
	nextID    int
	gen       uint64
}

// NewTracker returns an empty tracker. A non-positive MaxAge or threshold
// falls back to the defaults, so the zero Options value is usable.
func NewTracker(opts Options) *Tracker {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = DefaultIoUThreshold
	}
	return &Tracker{maxAge: opts.MaxAge, threshold: opts.IoUThreshold}
}

// Update ages and evicts tracks, then assigns every detection to a track.
// The returned observations follow the order of dets.
func (t *Tracker) Update(frame int, frameName string, dets []Detection) []Observation {
	t.gen++
	for _, tr := range t.tracks {
		tr.age++
	}
	t.tracks = slices.DeleteFunc(t.tracks, func(tr *track) bool {
		return tr.age > t.maxAge
	})

	observations := make([]Observation, 0, len(dets))
	for _, det := range dets {
		owner := t.match(det.Box)
		if owner == nil {
			owner = &track{id: t.nextID}
			t.nextID++
			t.tracks = append(t.tracks, owner)
		}
		owner.box = det.Box
		owner.age = 0
		owner.claimed = t.gen
		observations = append(observations, Observation{
			Frame:      frame,
			FrameName:  frameName,
			ID:         owner.id,
			Label:      det.Label,
			Box:        det.Box,
			Confidence: det.Confidence,
		})
	}
	return observations
}

// match returns the unclaimed live track with the strictly highest IoU above
// the threshold. Ties keep the lowest id.
func (t *Tracker) match(box Box) *track {
	var best *track
	bestIoU := 0.0
	for _, tr := range t.tracks {
		if tr.claimed == t.gen {
			continue
		}
		score := IoU(box, tr.box)
		if score > bestIoU {
			best = tr
			bestIoU = score
		}
	}
	if best == nil || bestIoU <= t.threshold {
		return nil
	}
	return best
}

// Live returns the number of tracks currently held.
func (t *Tracker) Live() int {
	return len(t.tracks)
}

// Created returns how many track ids have been allocated.
func (t *Tracker) Created() int {
	return t.nextID
}
