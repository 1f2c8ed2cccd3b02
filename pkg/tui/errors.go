package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrStuck is returned when validation keeps failing on fields the runner
	// cannot prompt for, such as hidden inputs without a value.
	ErrStuck = errors.New("tui: cannot resolve validation errors interactively")
)
