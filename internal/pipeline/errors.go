package pipeline

import (
	"fmt"

	"kittexport/internal/scrapers/kitt"
)

type Phase string

const (
	PhaseCatalog Phase = "catalog"
	PhaseExport  Phase = "export"
)

// StageError locates a failure of a run: the phase it happened in and, for
// exports, the lecture being exported.
type StageError struct {
	Phase   Phase
	Lecture *kitt.Lecture
	Err     error
}

func (e *StageError) Error() string {
	if e.Lecture == nil {
		return fmt.Sprintf("%s: %s", e.Phase, e.Err)
	}
	return fmt.Sprintf(
		"%s %q (%s, %s): %s",
		e.Phase, e.Lecture.Name, e.Lecture.Week, e.Lecture.ContentUrl, e.Err,
	)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
