package pipeline

import (
	"sync/atomic"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/nav"
	"go.viam.com/pathfinder/streamio"
)

// streamServer is the subset of *streamio.Server a StreamObserver needs,
// kept narrow so tests can substitute a recording fake instead of binding a
// real TCP listener.
type streamServer interface {
	Publish(streamio.Payload)
}

// StreamObserver adapts the debug stream server to the pipeline's Observer
// fan-out, emitting every Nth processed frame.
type StreamObserver struct {
	server     streamServer
	cellSize   float64
	depthScale float64
	every      uint64
	count      uint64 // atomic
}

// NewStreamObserver builds a StreamObserver wired to server, reading its
// cadence and grid cell size from cfg.
func NewStreamObserver(server *streamio.Server, cfg *config.Config) *StreamObserver {
	every := uint64(cfg.Stream.SendEveryNFrames)
	if every == 0 {
		every = 1
	}
	return &StreamObserver{
		server:     server,
		cellSize:   cfg.Grid.CellSize,
		depthScale: nav.DefaultDepthScale,
		every:      every,
	}
}

// Publish implements Observer. It builds a streamio.Payload from pub and
// forwards it to the stream server, skipping frames outside the configured
// cadence.
func (o *StreamObserver) Publish(pub Published) {
	n := atomic.AddUint64(&o.count, 1)
	if n%o.every != 0 {
		return
	}
	payload := streamio.BuildPayload(pub.Timestamp, pub.UserPosition, pub.GridSnapshot, pub.Output, o.cellSize, o.depthScale)
	o.server.Publish(payload)
}
