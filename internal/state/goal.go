package state

import "strings"

// Goal is the immutable natural-language description of the defect to
// repair. It identifies the run.
type Goal string

// Validate reports whether the goal is usable: non-empty after trimming.
func (g Goal) Validate() error {
	if strings.TrimSpace(string(g)) == "" {
		return ErrEmptyGoal
	}
	return nil
}

func (g Goal) String() string { return string(g) }
