// Command pathfinderd is the navigation pipeline driver binary. It wires
// config, logging, the occupancy grid, the navigation planner, and the
// debug stream server together; the camera/pose source and the two neural
// model runners are external collaborators that an embedder supplies
// through pipeline.VisionModel before frames can flow.
package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"go.viam.com/pathfinder/config"
	"go.viam.com/pathfinder/logging"
	"go.viam.com/pathfinder/pipeline"
	"go.viam.com/pathfinder/streamio"
)

const version = "0.1.0"

const (
	exitOK          = 0
	exitConfigError = 2
	exitModelLoad   = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		port        int
		cellSize    float64
		gridSize    int
		maxDistance float64
		walkableIDs string
	)

	logger := logging.NewLogger("pathfinderd")

	root := &cobra.Command{
		Use:           "pathfinderd",
		Short:         "PATHFINDER navigation pipeline driver",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if cmd.Flags().Changed("port") {
				cfg.Stream.TCPPort = port
			}
			if cmd.Flags().Changed("cell-size") {
				cfg.Grid.CellSize = cellSize
			}
			if cmd.Flags().Changed("grid-size") {
				cfg.Grid.GridSize = gridSize
			}
			if cmd.Flags().Changed("max-distance") {
				cfg.Grid.MaxDistance = maxDistance
			}
			if cmd.Flags().Changed("walkable-ids") {
				ids, err := parseWalkableIDs(walkableIDs)
				if err != nil {
					return multierr.Append(pipeline.ErrConfig, err)
				}
				cfg.WalkableIDs = ids
			}

			if err := cfg.Validate(); err != nil {
				return multierr.Append(pipeline.ErrConfig, err)
			}

			server, err := streamio.NewServer(cfg.Stream.TCPPort, logger.Named("stream"))
			if err != nil {
				return multierr.Append(pipeline.ErrConfig, err)
			}
			defer server.Close()

			vision, err := loadVisionModel(cfg)
			if err != nil {
				return multierr.Append(pipeline.ErrModelLoad, err)
			}

			streamObserver := pipeline.NewStreamObserver(server, cfg)
			driver := pipeline.NewDriver(cfg, logger.Named("pipeline"), vision, nil, streamObserver)
			logger.Infow("pathfinderd ready", "port", cfg.Stream.TCPPort, "gridSize", cfg.Grid.GridSize)

			<-cmd.Context().Done()
			stats := driver.Latest().Stats
			logger.Infow("pathfinderd stopping", "framesProcessed", stats.FramesProcessed, "framesDropped", stats.FramesDropped)
			return nil
		},
	}

	root.Flags().IntVar(&port, "port", 8765, "debug stream TCP port")
	root.Flags().Float64Var(&cellSize, "cell-size", 0.10, "occupancy grid cell size in meters")
	root.Flags().IntVar(&gridSize, "grid-size", 200, "occupancy grid cells per side")
	root.Flags().Float64Var(&maxDistance, "max-distance", 10.0, "maximum tracked obstacle distance in meters")
	root.Flags().StringVar(&walkableIDs, "walkable-ids", "", "comma-separated walkable segmentation class IDs (overrides defaults)")

	root.SetArgs(args)
	root.SetContext(context.Background())

	if err := root.Execute(); err != nil {
		if errors.Is(err, pipeline.ErrModelLoad) {
			logger.Errorw("model load failed", "err", err)
			return exitModelLoad
		}
		logger.Errorw("configuration rejected", "err", err)
		return exitConfigError
	}
	return exitOK
}

func parseWalkableIDs(csv string) ([]int, error) {
	parts := strings.Split(csv, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return nil, errors.Errorf("pathfinderd: invalid walkable id %q", p)
		}
		ids = append(ids, v)
	}
	if len(ids) == 0 {
		return nil, errors.New("pathfinderd: --walkable-ids must list at least one class id")
	}
	return ids, nil
}

// loadVisionModel is the binary's model-loading hook. Without an
// embedder-supplied implementation wired in here, startup fails and the
// process exits with the model-load code.
func loadVisionModel(cfg *config.Config) (pipeline.VisionModel, error) {
	return nil, errors.New("pathfinderd: no vision model runner configured")
}
