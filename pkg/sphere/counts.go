package sphere

import "fmt"

// MaxCountLevel is the deepest level whose counts fit in an int64.
const MaxCountLevel = 29

// pow4 returns 4^level for 0 <= level <= MaxCountLevel.
func pow4(level int) (int, error) {
	if level < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if level > MaxCountLevel {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrLevelTooDeep, level, MaxCountLevel)
	}
	return 1 << (2 * uint(level)), nil
}

// VertexCount returns the number of vertices at level: 10·4^level + 2.
func VertexCount(level int) (int, error) {
	p, err := pow4(level)
	if err != nil {
		return 0, err
	}
	return 10*p + 2, nil
}

// FaceCount returns the number of faces at level: 20·4^level.
func FaceCount(level int) (int, error) {
	p, err := pow4(level)
	if err != nil {
		return 0, err
	}
	return 20 * p, nil
}

// EdgeCount returns the number of edges at level: 30·4^level.
func EdgeCount(level int) (int, error) {
	p, err := pow4(level)
	if err != nil {
		return 0, err
	}
	return 30 * p, nil
}

// mustVertexCount is VertexCount for levels already validated.
func mustVertexCount(level int) int {
	n, err := VertexCount(level)
	if err != nil {
		panic(err)
	}
	return n
}
