package sphere

import "errors"

var (
	// ErrInvalidLevel is returned for negative levels.
	ErrInvalidLevel = errors.New("sphere: invalid level")

	// ErrLevelTooDeep is returned for levels past the cache's limit.
	ErrLevelTooDeep = errors.New("sphere: level too deep")

	// ErrVertexCount is returned when a caller-supplied vertex array is too
	// short for the requested level.
	ErrVertexCount = errors.New("sphere: vertex array too short for level")

	// ErrVertexOutOfRange is returned for vertex indices that do not exist
	// at the requested level.
	ErrVertexOutOfRange = errors.New("sphere: vertex out of range")
)
