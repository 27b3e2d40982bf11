package pipeline

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/occupancy"
	"go.viam.com/pathfinder/streamio"
)

type recordingStreamServer struct {
	payloads []streamio.Payload
}

func (r *recordingStreamServer) Publish(p streamio.Payload) {
	r.payloads = append(r.payloads, p)
}

func TestStreamObserverGatesOnCadence(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stream.SendEveryNFrames = 3

	rec := &recordingStreamServer{}
	o := &StreamObserver{server: rec, cellSize: cfg.Grid.CellSize, depthScale: 10.0, every: uint64(cfg.Stream.SendEveryNFrames)}

	for i := 0; i < 7; i++ {
		o.Publish(Published{GridSnapshot: occupancy.Snapshot{Size: 2, States: make([]occupancy.CellState, 4), ElevationCM: make([]int8, 4)}})
	}

	// 7 frames at a cadence of 3 emits on frame 3 and frame 6.
	test.That(t, len(rec.payloads), test.ShouldEqual, 2)
}

func TestStreamObserverDefaultsEveryToOneWhenConfigIsZero(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stream.SendEveryNFrames = 0

	rec := &recordingStreamServer{}
	o := NewStreamObserver(nil, cfg)
	o.server = rec

	o.Publish(Published{GridSnapshot: occupancy.Snapshot{Size: 1, States: make([]occupancy.CellState, 1), ElevationCM: make([]int8, 1)}})

	test.That(t, len(rec.payloads), test.ShouldEqual, 1)
}
