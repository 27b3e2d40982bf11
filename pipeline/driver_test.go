package pipeline

import (
	"context"
	goerrors "errors"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/spatialmath"
)

// fakeVisionModel is a deterministic VisionModel test double.
type fakeVisionModel struct {
	width, height       int
	segWidth, segHeight int
	fail                bool
}

func (f *fakeVisionModel) RunDepth(ctx context.Context, frame ColorFrame) (DepthResult, error) {
	if f.fail {
		return DepthResult{}, errVisionFailure
	}
	data := make([]float32, f.width*f.height)
	for i := range data {
		data[i] = 0.1
	}
	return DepthResult{Width: f.width, Height: f.height, Data: data}, nil
}

func (f *fakeVisionModel) RunSeg(ctx context.Context, frame ColorFrame) (SegResult, error) {
	if f.fail {
		return SegResult{}, errVisionFailure
	}
	labels := make([]uint8, f.segWidth*f.segHeight)
	for i := range labels {
		labels[i] = 149 // "road", in the default walkable set
	}
	return SegResult{Width: f.segWidth, Height: f.segHeight, Labels: labels}, nil
}

var errVisionFailure = goerrors.New("vision model unavailable")

type recordingAudio struct {
	mu   sync.Mutex
	cues []AudioCue
}

func (r *recordingAudio) Emit(c AudioCue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
}

func (r *recordingAudio) last() (AudioCue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cues) == 0 {
		return AudioCue{}, false
	}
	return r.cues[len(r.cues)-1], true
}

func waitForFrame(t *testing.T, d *Driver, before uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.Latest().Stats.FramesProcessed > before {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for frame to process")
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Grid.GridSize = 40
	return cfg
}

func TestDriverProcessesOpenFieldFrame(t *testing.T) {
	vision := &fakeVisionModel{width: 64, height: 64, segWidth: 64, segHeight: 64}
	audio := &recordingAudio{}
	d := NewDriver(testConfig(), logging.NewTestLogger(), vision, audio)

	d.OnFrame(context.Background(), FrameInput{
		Pose:       spatialmath.Identity,
		Intrinsics: Intrinsics{FX: 32, Width: 64, Height: 64},
		TimestampS: 0,
	})
	waitForFrame(t, d, 0)

	out := d.Latest().Output
	test.That(t, out.IsPathBlocked, test.ShouldBeFalse)
	test.That(t, out.GroundConfidence, test.ShouldBeGreaterThan, 0.8)
}

func TestDriverDropsFrameWhileBusy(t *testing.T) {
	vision := &fakeVisionModel{width: 64, height: 64, segWidth: 64, segHeight: 64}
	d := NewDriver(testConfig(), logging.NewTestLogger(), vision, nil)

	d.busy.Store(true) // simulate an in-flight frame
	d.OnFrame(context.Background(), FrameInput{Pose: spatialmath.Identity, Intrinsics: Intrinsics{FX: 32, Width: 64, Height: 64}})

	test.That(t, d.Latest().Stats.FramesDropped, test.ShouldEqual, uint64(0))
	d.mu.Lock()
	dropped := d.stats.FramesDropped
	d.mu.Unlock()
	test.That(t, dropped, test.ShouldEqual, uint64(1))
}

func TestDriverDegradesOnVisionFailure(t *testing.T) {
	vision := &fakeVisionModel{fail: true}
	d := NewDriver(testConfig(), logging.NewTestLogger(), vision, nil)

	d.OnFrame(context.Background(), FrameInput{Pose: spatialmath.Identity})
	waitForFrame(t, d, 0)

	out := d.Latest().Output
	test.That(t, out.GroundConfidence, test.ShouldEqual, 0.0)
	test.That(t, out.IsPathBlocked, test.ShouldBeFalse)
}
