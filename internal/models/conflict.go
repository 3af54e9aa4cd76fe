package models

// ConflictResolution decides what happens when a package is added to an
// index that already holds a package with the same identity.
type ConflictResolution int

const (
	// ConflictError aborts the run
	ConflictError ConflictResolution = iota
	// ConflictKeep leaves the existing entry in place
	ConflictKeep
	// ConflictReplace overwrites the existing entry
	ConflictReplace
)

func (c ConflictResolution) String() string {
	switch c {
	case ConflictKeep:
		return "keep"
	case ConflictReplace:
		return "replace"
	default:
		return "error"
	}
}
