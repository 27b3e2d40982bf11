// Package config holds the centralized tunables for the PATHFINDER core
// (grid geometry, elevation thresholds, temporal decay, planner processing
// constants, and debug-stream cadence), plus loading and hot-reload.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Grid holds the occupancy grid's footprint geometry.
type Grid struct {
	CellSize          float64 `json:"cell_size"`
	GridSize          int     `json:"grid_size"`
	MaxDistance       float64 `json:"max_distance"`
	RecenterEdgeMargin float64 `json:"recenter_edge_margin"`
}

// Elevation holds the surface-classification thresholds, all in meters.
type Elevation struct {
	StepMin        float64 `json:"step_min"`
	StepMax        float64 `json:"step_max"`
	CurbMin        float64 `json:"curb_min"`
	Dropoff        float64 `json:"dropoff"`
	RampMaxSlope   float64 `json:"ramp_max_slope"`
	StairStepSize  float64 `json:"stair_step_size"`
	StairTolerance float64 `json:"stair_tolerance"`
	ObstacleHeight float64 `json:"obstacle_height"`
	FloorTolerance float64 `json:"floor_tolerance"`
}

// Temporal holds confidence decay/boost parameters.
type Temporal struct {
	ConfidenceDecay  float64 `json:"confidence_decay"`
	MinConfidence    uint8   `json:"min_confidence"`
	ObservationBoost uint8   `json:"observation_boost"`
	MaxConfidence    uint8   `json:"max_confidence"`
}

// Processing holds planner/scene-analysis constants.
type Processing struct {
	HeadingSmoothingAlpha   float64 `json:"heading_smoothing_alpha"`
	MinFloorSamples         int     `json:"min_floor_samples"`
	MinHitCount             uint16  `json:"min_hit_count"`
	ElevationMergeThreshold float64 `json:"elevation_merge_threshold"`
}

// Stream holds debug-stream cadence and transport settings.
type Stream struct {
	SendEveryNFrames    int `json:"send_every_n_frames"`
	MaxElevationChanges int `json:"max_elevation_changes"`
	TCPPort             int `json:"tcp_port"`
}

// Config is the single process-wide tunables table.
type Config struct {
	Grid        Grid       `json:"grid"`
	Elevation   Elevation  `json:"elevation"`
	Temporal    Temporal   `json:"temporal"`
	Processing  Processing `json:"processing"`
	Stream      Stream     `json:"stream"`
	// WalkableIDs is []int rather than []uint8 so a config file can list
	// the class IDs as a plain JSON array ([]uint8 would round-trip as
	// base64). Validate enforces the 0..255 range.
	WalkableIDs []int `json:"walkable_ids"`
}

// DefaultWalkableIDs is the default DETR/COCO-panoptic "stuff" walkable
// label set.
var DefaultWalkableIDs = []int{
	101, 111, 114, 115, 116, 117, 118, 124, 125, 126,
	131, 136, 140, 144, 145, 147, 149, 152, 154, 161,
}

// DefaultConfig returns the default tunables.
func DefaultConfig() *Config {
	return &Config{
		Grid: Grid{
			CellSize:           0.10,
			GridSize:           200,
			MaxDistance:        10.0,
			RecenterEdgeMargin: 0.2,
		},
		Elevation: Elevation{
			StepMin:        0.05,
			StepMax:        0.20,
			CurbMin:        0.20,
			Dropoff:        0.30,
			RampMaxSlope:   0.15,
			StairStepSize:  0.18,
			StairTolerance: 0.03,
			ObstacleHeight: 0.25,
			FloorTolerance: 0.20,
		},
		Temporal: Temporal{
			ConfidenceDecay:  0.995,
			MinConfidence:    20,
			ObservationBoost: 30,
			MaxConfidence:    255,
		},
		Processing: Processing{
			HeadingSmoothingAlpha:   0.2,
			MinFloorSamples:         10,
			MinHitCount:             3,
			ElevationMergeThreshold: 0.5,
		},
		Stream: Stream{
			SendEveryNFrames:    3,
			MaxElevationChanges: 10,
			TCPPort:             8765,
		},
		WalkableIDs: append([]int(nil), DefaultWalkableIDs...),
	}
}

// WalkableSet returns the walkable IDs as a set for O(1) membership tests.
func (c *Config) WalkableSet() map[uint8]struct{} {
	set := make(map[uint8]struct{}, len(c.WalkableIDs))
	for _, id := range c.WalkableIDs {
		set[uint8(id)] = struct{}{}
	}
	return set
}

// Validate rejects invalid grid geometry and out-of-order thresholds;
// failures here are fatal at startup.
func (c *Config) Validate() error {
	if c.Grid.GridSize <= 0 {
		return errors.Errorf("config: grid_size must be positive, got %d", c.Grid.GridSize)
	}
	if c.Grid.CellSize <= 0 {
		return errors.Errorf("config: cell_size must be positive, got %f", c.Grid.CellSize)
	}
	if c.Grid.MaxDistance <= 0 {
		return errors.Errorf("config: max_distance must be positive, got %f", c.Grid.MaxDistance)
	}
	if c.Grid.RecenterEdgeMargin <= 0 || c.Grid.RecenterEdgeMargin >= 1 {
		return errors.Errorf("config: recenter_edge_margin must be in (0,1), got %f", c.Grid.RecenterEdgeMargin)
	}
	if !(c.Elevation.StepMin < c.Elevation.StepMax && c.Elevation.StepMax <= c.Elevation.CurbMin && c.Elevation.CurbMin < c.Elevation.Dropoff) {
		return errors.Errorf("config: elevation thresholds must satisfy step_min<step_max<=curb_min<dropoff")
	}
	if c.Temporal.ConfidenceDecay <= 0 || c.Temporal.ConfidenceDecay > 1 {
		return errors.Errorf("config: confidence_decay must be in (0,1], got %f", c.Temporal.ConfidenceDecay)
	}
	if c.Temporal.MaxConfidence == 0 {
		return errors.Errorf("config: max_confidence must be positive")
	}
	if c.Processing.HeadingSmoothingAlpha <= 0 || c.Processing.HeadingSmoothingAlpha > 1 {
		return errors.Errorf("config: heading_smoothing_alpha must be in (0,1], got %f", c.Processing.HeadingSmoothingAlpha)
	}
	if c.Stream.SendEveryNFrames <= 0 {
		return errors.Errorf("config: send_every_n_frames must be positive, got %d", c.Stream.SendEveryNFrames)
	}
	if c.Stream.TCPPort <= 0 || c.Stream.TCPPort > 65535 {
		return errors.Errorf("config: tcp_port out of range, got %d", c.Stream.TCPPort)
	}
	if len(c.WalkableIDs) == 0 {
		return errors.Errorf("config: walkable_ids must not be empty")
	}
	for _, id := range c.WalkableIDs {
		if id < 0 || id > 255 {
			return errors.Errorf("config: walkable id %d out of range [0,255]", id)
		}
	}
	return nil
}

// Load reads and validates a Config from a JSON file, falling back to
// DefaultConfig's values for any zero-valued group the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
