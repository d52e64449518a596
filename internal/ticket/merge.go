package ticket

// Overrides is the delta that must win over a proposed attribute set when
// an existing ticket is updated. Computing it is pure; applying it is the
// Manager's job.
type Overrides struct {
	// Level is the retained trust level when KeepLevel is set: a fresh,
	// lower-assurance authentication never downgrades an existing ticket.
	Level     int
	KeepLevel bool

	// UIDChanged signals that any single-sign-on state indexed by
	// PreviousUID must be invalidated.
	PreviousUID string
	UIDChanged  bool
}

func MergeOverrides(old, proposed Ticket) Overrides {
	var ov Overrides

	if old.level > proposed.level {
		ov.KeepLevel = true
		ov.Level = old.level
	}

	if old.uid != proposed.uid {
		ov.UIDChanged = true
		ov.PreviousUID = old.uid
	}

	return ov
}
