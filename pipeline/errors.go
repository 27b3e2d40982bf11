package pipeline

import "github.com/pkg/errors"

// ErrModelLoad means a vision model runner failed to initialize; fatal at
// startup.
var ErrModelLoad = errors.New("pipeline: model load failure")

// ErrConfig means the grid geometry or a threshold is invalid; fatal at
// startup.
var ErrConfig = errors.New("pipeline: configuration error")
