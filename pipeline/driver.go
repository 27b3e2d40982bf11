package pipeline

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/nav"
	"go.viam.com/pathfinder/occupancy"
	"go.viam.com/pathfinder/rimage"
	"go.viam.com/pathfinder/scene"
	"go.viam.com/pathfinder/spatialmath"
)

// Published is the atomically-published per-frame state observers read;
// consumers always see the latest published value. GridSnapshot and
// Timestamp let an Observer reconstruct a full debug-stream payload
// without reaching back into the driver's internals.
type Published struct {
	Output       nav.Output
	Stats        SensorStats
	UI           UIState
	GridSnapshot occupancy.Snapshot
	UserPosition spatialmath.Vector
	Timestamp    float64
}

// Observer receives the latest published state after each processed frame.
type Observer interface {
	Publish(Published)
}

// Driver is the pipeline stage that solely owns the occupancy grid and the
// planner's heading state. Frame intake is event-driven and non-blocking;
// a frame arriving while the previous one is still processing is dropped.
type Driver struct {
	cfg    *config.Config
	logger logging.Logger

	vision   VisionModel
	audio    AudioSink
	analyzer *scene.Analyzer
	planner  *nav.Planner
	grid     *occupancy.Grid

	observers []Observer

	busy          atomic.Bool
	lastTime      atomic.Float64
	haveTime      atomic.Bool
	published     atomic.Value // Published
	lowConfRun    atomic.Int64
	smoothHeading atomic.Float64
	haveHeading   atomic.Bool

	stats SensorStats // FramesDropped is bumped by OnFrame, the rest by the pipeline goroutine
	mu    sync.Mutex  // guards stats (read by publish)
}

// NewDriver constructs a Driver that owns a freshly allocated grid sized
// per cfg.
func NewDriver(cfg *config.Config, logger logging.Logger, vision VisionModel, audio AudioSink, observers ...Observer) *Driver {
	d := &Driver{
		cfg:       cfg,
		logger:    logger,
		vision:    vision,
		audio:     audio,
		analyzer:  scene.NewAnalyzer(cfg.WalkableSet(), logger.Named("scene")),
		planner:   nav.NewPlanner(logger.Named("nav")),
		grid:      occupancy.NewGrid(cfg, logger.Named("occupancy")),
		observers: observers,
	}
	d.published.Store(Published{})
	return d
}

// Grid exposes the driver's owned grid for read-only snapshotting by the
// debug stream.
func (d *Driver) Grid() *occupancy.Grid { return d.grid }

// Latest returns the most recently published frame state.
func (d *Driver) Latest() Published {
	return d.published.Load().(Published)
}

// OnFrame is the frame intake entry point. It never blocks: if the
// pipeline is still processing the previous frame, this frame is dropped.
func (d *Driver) OnFrame(ctx context.Context, input FrameInput) {
	if !d.busy.CompareAndSwap(false, true) {
		d.mu.Lock()
		d.stats.FramesDropped++
		d.mu.Unlock()
		return
	}
	utils.PanicCapturingGo(func() {
		defer d.busy.Store(false)
		d.processFrame(ctx, input)
	})
}

// cameraHFOV derives a horizontal field of view from intrinsics (fx, width)
// the standard pinhole relation hfov = 2*atan(width/(2*fx)).
func cameraHFOV(in Intrinsics) float64 {
	if in.FX <= 0 || in.Width <= 0 {
		return 1.0 // degenerate collaborator input: a conservative fallback FOV
	}
	return 2 * math.Atan(float64(in.Width)/(2*in.FX))
}

func (d *Driver) dt(timestampS float64) float64 {
	if !d.haveTime.Load() {
		d.haveTime.Store(true)
		d.lastTime.Store(timestampS)
		return 1.0 / 60.0 // no previous frame yet
	}
	prev := d.lastTime.Load()
	d.lastTime.Store(timestampS)
	dt := timestampS - prev
	if dt < 0 {
		return 0
	}
	return dt
}

// processFrame runs the joined-vision -> scene -> planner pipeline for a
// single frame and publishes the result.
func (d *Driver) processFrame(ctx context.Context, input FrameInput) {
	visionStart := time.Now()
	depth, seg, err := d.runVisionJoined(ctx, input.Frame)
	visionMS := float64(time.Since(visionStart)) / float64(time.Millisecond)
	dtSeconds := d.dt(input.TimestampS)

	d.mu.Lock()
	d.stats.FramesProcessed++
	d.stats.LastVisionMS = visionMS
	if dtSeconds > 0 {
		d.stats.FPS = 1.0 / dtSeconds
	}
	d.mu.Unlock()

	if err != nil {
		// degraded frame: no scene evidence, ground confidence 0, not blocked
		d.logger.Warnw("pipeline: vision model failed, publishing pass-through frame", "err", err)
		d.publish(nav.Output{NearestObstacleDistance: math.Inf(1)}, input.Pose.Position(), input.TimestampS, false)
		return
	}

	hfov := cameraHFOV(input.Intrinsics)
	sceneUnderstanding, sampleErr := d.analyzer.Analyze(depth, seg, hfov)
	if sampleErr != nil {
		skipped := 0
		for _, e := range multierr.Errors(sampleErr) {
			if se, ok := e.(scene.SampleError); ok {
				skipped += se.Count
			}
		}
		d.mu.Lock()
		d.stats.SkippedSamples += uint64(skipped)
		d.mu.Unlock()
	}

	userPos := input.Pose.Position()
	userHeading := input.Pose.Heading()

	out := d.planner.Update(sceneUnderstanding, userPos, userHeading, dtSeconds, d.grid)
	out.SuggestedHeading = d.filterHeading(out.SuggestedHeading)
	d.grid.Classify()

	d.publish(out, userPos, input.TimestampS, true)
}

// filterHeading applies the driver-level exponential smoothing filter on
// top of the planner's own per-frame blend: a shortest-arc difference
// scaled by the configured alpha, so a heading crossing the +/-pi boundary
// never smooths the long way around.
func (d *Driver) filterHeading(raw float64) float64 {
	if !d.haveHeading.Load() {
		d.haveHeading.Store(true)
		d.smoothHeading.Store(raw)
		return raw
	}
	prev := d.smoothHeading.Load()
	alpha := d.cfg.Processing.HeadingSmoothingAlpha
	next := spatialmath.NormalizeAngle(prev + alpha*spatialmath.ShortestArc(prev, raw))
	d.smoothHeading.Store(next)
	return next
}

// runVisionJoined runs the depth and segmentation model runners
// concurrently and joins them before returning. A dimension mismatch in
// either result is logged and folded into the returned error so the caller
// degrades the frame rather than panicking on mismatched buffers
// downstream.
func (d *Driver) runVisionJoined(ctx context.Context, frame ColorFrame) (*rimage.DepthMap, *rimage.SegmentationMap, error) {
	var wg sync.WaitGroup
	wg.Add(2)

	var depthResult DepthResult
	var depthErr error
	var segResult SegResult
	var segErr error

	utils.PanicCapturingGo(func() {
		defer wg.Done()
		depthResult, depthErr = d.vision.RunDepth(ctx, frame)
	})
	utils.PanicCapturingGo(func() {
		defer wg.Done()
		segResult, segErr = d.vision.RunSeg(ctx, frame)
	})
	wg.Wait()

	if err := multierr.Combine(depthErr, segErr); err != nil {
		return nil, nil, err
	}

	depthMap, err := rimage.NewDepthMap(depthResult.Width, depthResult.Height, depthResult.Data)
	if err != nil {
		d.logger.Warnw("pipeline: shape error building depth map", "err", err)
		return nil, nil, err
	}
	segMap, err := rimage.NewSegmentationMap(segResult.Width, segResult.Height, segResult.Labels)
	if err != nil {
		d.logger.Warnw("pipeline: shape error building segmentation map", "err", err)
		return nil, nil, err
	}
	return depthMap, segMap, nil
}

// publish computes the UI state and audio cue for out, atomically stores
// the published snapshot, and fans it out to every observer.
func (d *Driver) publish(out nav.Output, userPos spatialmath.Vector, timestampS float64, hadScene bool) {
	ui := d.uiState(out)

	d.mu.Lock()
	stats := d.stats
	d.mu.Unlock()

	pub := Published{
		Output:       out,
		Stats:        stats,
		UI:           ui,
		GridSnapshot: d.grid.Snapshot(),
		UserPosition: userPos,
		Timestamp:    timestampS,
	}
	d.published.Store(pub)

	if hadScene && d.audio != nil {
		if cue, ok := d.audioCue(out, ui); ok {
			d.audio.Emit(cue)
		}
	}
	for _, obs := range d.observers {
		obs.Publish(pub)
	}
}

// uiState maps the frame's output onto the user-facing status message.
func (d *Driver) uiState(out nav.Output) UIState {
	if out.GroundConfidence < 0.3 {
		d.lowConfRun.Add(1)
	} else {
		d.lowConfRun.Store(0)
	}

	if out.IsPathBlocked {
		return UIState{Message: uiBlocked}
	}
	if d.lowConfRun.Load() >= 2 {
		return UIState{Message: uiLowGroundConfidence}
	}
	return UIState{Message: uiNominal}
}

// audioCue picks the frame's audio event by priority: a near discontinuity
// first, then a fully blocked path, then ordinary nearest-obstacle
// reporting. No cue beyond 5m (ok=false).
func (d *Driver) audioCue(out nav.Output, ui UIState) (cue AudioCue, ok bool) {
	caution := ui.Message == uiLowGroundConfidence

	if out.DiscontinuityAhead != nil {
		dist := out.DiscontinuityAhead.EstimatedDistance(d.planner.DepthScale)
		if dist < 3.0 {
			return AudioCue{
				Kind:     CueSurfaceChange,
				Distance: dist,
				Bearing:  out.DiscontinuityAhead.Bearing,
				Severity: out.DiscontinuityAhead.Magnitude,
				Caution:  caution,
			}, true
		}
	}

	if out.IsPathBlocked {
		return AudioCue{Kind: CueImminentObstacle, Distance: 0.1, Caution: caution}, true
	}

	dist := out.NearestObstacleDistance
	if math.IsInf(dist, 1) || dist > 5.0 {
		return AudioCue{}, false
	}
	return AudioCue{Kind: CueObstacle, Distance: dist, Bearing: out.NearestObstacleBearing, Caution: caution}, true
}
