package world

import "errors"

var (
	// ErrChunkNotLoaded is returned when an edit touches a chunk that is not Ready in the directory.
	ErrChunkNotLoaded = errors.New("world: chunk not loaded")
	// ErrOutOfBounds is returned for positions outside the world's vertical range.
	ErrOutOfBounds = errors.New("world: position out of bounds")
	// ErrGenerationCancelled is reported by a generation handle whose job was cancelled.
	ErrGenerationCancelled = errors.New("world: generation cancelled")
	// ErrGenerationFailed is reported when populating or meshing a chunk failed.
	ErrGenerationFailed = errors.New("world: generation failed")
	// ErrChunkExists is returned when adding a chunk whose coordinate is already taken.
	ErrChunkExists = errors.New("world: chunk already exists")
	// ErrQueueFull is reported when the generation queue cannot take another job.
	ErrQueueFull = errors.New("world: generation queue full")
)
