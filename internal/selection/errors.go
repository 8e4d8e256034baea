package selection

import "errors"

// Sentinel errors returned (wrapped) by this package. Use errors.Is to test.
var (
	// ErrInvalidTarget reports a target count outside 1..len(table).
	ErrInvalidTarget = errors.New("invalid target count")

	// ErrDegenerateGroup reports a group count (or partition total) that
	// cannot form at least one group.
	ErrDegenerateGroup = errors.New("degenerate group count")

	// ErrConflictingOptions reports ForceGrouped and ForceUngrouped set together.
	ErrConflictingOptions = errors.New("conflicting selection options")

	// ErrDuplicateID reports two table entries sharing an identifier.
	ErrDuplicateID = errors.New("duplicate image id")

	// ErrEmptyTable reports a score table with no entries.
	ErrEmptyTable = errors.New("empty score table")
)
