package cluster

import "github.com/Carmen-Shannon/oxy-cluster/engine/logging"

// EngineBuilderOption is a function that configures the clustering Engine during construction.
type EngineBuilderOption func(*engineImpl)

// WithBinCount is an option builder that sets the number of Z-bins.
//
// Parameters:
//   - n: the bin count (DefaultBinCount when 0)
//
// Returns:
//   - EngineBuilderOption: a function that applies the bin count option to an engineImpl
func WithBinCount(n int) EngineBuilderOption {
	return func(e *engineImpl) {
		e.binCount = n
	}
}

// WithWorkers is an option builder that sets the worker pool size, which is also the
// maximum number of chunks a stage is split into.
//
// Parameters:
//   - n: the worker count (runtime.NumCPU() when 0)
//
// Returns:
//   - EngineBuilderOption: a function that applies the worker option to an engineImpl
func WithWorkers(n int) EngineBuilderOption {
	return func(e *engineImpl) {
		e.workers = n
	}
}

// WithQueueSize is an option builder that sets the worker pool task queue length.
//
// Parameters:
//   - n: the queue length (DefaultQueueSize when 0)
//
// Returns:
//   - EngineBuilderOption: a function that applies the queue option to an engineImpl
func WithQueueSize(n int) EngineBuilderOption {
	return func(e *engineImpl) {
		e.queueSize = n
	}
}

// WithMinFurthestBack is an option builder that sets the smallest depth range the
// Z-bins cover, even when every light is closer.
//
// Parameters:
//   - depth: the minimum range (DefaultMinFurthestBack when 0)
//
// Returns:
//   - EngineBuilderOption: a function that applies the option to an engineImpl
func WithMinFurthestBack(depth float32) EngineBuilderOption {
	return func(e *engineImpl) {
		e.minFurthestBack = depth
	}
}

// WithTileSize is an option builder that sets the screen tile edge in pixels.
//
// Parameters:
//   - px: the tile size (DefaultTileSize when 0)
//
// Returns:
//   - EngineBuilderOption: a function that applies the tile size option to an engineImpl
func WithTileSize(px uint32) EngineBuilderOption {
	return func(e *engineImpl) {
		e.tileSize = px
	}
}

// WithLogger is an option builder that sets the engine logger.
//
// Parameters:
//   - l: the logger; nil discards output
//
// Returns:
//   - EngineBuilderOption: a function that applies the logger option to an engineImpl
func WithLogger(l logging.Logger) EngineBuilderOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}
