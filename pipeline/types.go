// Package pipeline implements the frame-intake driver: the sole writer of
// the occupancy grid and of the planner's heading state, fanning out each
// frame's navigation decision to audio and debug-stream observers.
package pipeline

import (
	"context"

	"go.viam.com/pathfinder/spatialmath"
)

// ColorFrame is an opaque handle to a color frame from the external camera
// collaborator. The pipeline never inspects its contents directly; it is
// only ever forwarded to the VisionModel collaborator.
type ColorFrame struct {
	Width, Height int
	Data          []byte
}

// Intrinsics is the external camera's calibration, passed through with
// each frame.
type Intrinsics struct {
	FX, FY, CX, CY float64
	Width, Height  int
}

// FrameInput is a single OnFrame call's arguments.
type FrameInput struct {
	Frame      ColorFrame
	Pose       spatialmath.Pose4x4
	Intrinsics Intrinsics
	TimestampS float64
}

// DepthResult is the external depth model collaborator's output: raw,
// relative (non-metric) depth.
type DepthResult struct {
	Width, Height int
	Data          []float32
}

// SegResult is the external segmentation model collaborator's output.
type SegResult struct {
	Width, Height int
	Labels        []uint8
}

// VisionModel is the capability set the two neural model runners satisfy.
// The pipeline calls RunDepth and RunSeg concurrently and joins them
// before scene analysis.
type VisionModel interface {
	RunDepth(ctx context.Context, frame ColorFrame) (DepthResult, error)
	RunSeg(ctx context.Context, frame ColorFrame) (SegResult, error)
}

// CueKind is the spatial-audio cue category.
type CueKind int

const (
	// CueObstacle: ordinary nearest-obstacle reporting, within 5m.
	CueObstacle CueKind = iota
	// CueSurfaceChange: a surface discontinuity ahead within 3m.
	CueSurfaceChange
	// CueImminentObstacle: the path is fully blocked.
	CueImminentObstacle
)

func (k CueKind) String() string {
	switch k {
	case CueSurfaceChange:
		return "SurfaceChange"
	case CueImminentObstacle:
		return "ImminentObstacle"
	default:
		return "Obstacle"
	}
}

// AudioCue is the spatialized audio event forwarded to the external audio
// synthesis collaborator.
type AudioCue struct {
	Kind     CueKind
	Distance float64
	Bearing  float64
	Severity float64 // magnitude-derived severity for CueSurfaceChange; 0 otherwise
	Caution  bool    // ground confidence below 0.3 for consecutive frames
}

// AudioSink is the external spatial audio collaborator's capability set.
type AudioSink interface {
	Emit(cue AudioCue)
}

// SensorStats is the per-frame health snapshot published alongside each
// navigation output.
type SensorStats struct {
	FPS             float64
	LastVisionMS    float64
	FramesProcessed uint64
	FramesDropped   uint64
	SkippedSamples  uint64
}

// UIState is the human-facing status string published with each frame.
type UIState struct {
	Message string
}

const (
	uiNominal             = ""
	uiLowGroundConfidence = "LOW GROUND CONFIDENCE"
	uiBlocked             = "BLOCKED"
)
