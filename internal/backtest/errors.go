package backtest

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientData reports a window too short for a return or dispersion.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMisalignedWindows reports that the two assets' dates differ within a window.
	ErrMisalignedWindows = errors.New("misaligned windows")
	// ErrUndefinedMetric reports a singular ratio, e.g. zero dispersion.
	ErrUndefinedMetric = errors.New("undefined metric")
)

// WindowError locates a fault within a run.
type WindowError struct {
	Fold      Fold
	StartDate time.Time
	EndDate   time.Time
	Err       error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("iteration %d, optimization [%d,%d) forward [%d,%d) %s..%s: %v",
		e.Fold.Index, e.Fold.OptStart, e.Fold.OptFinish, e.Fold.FwdStart, e.Fold.FwdFinish,
		e.StartDate.Format(time.DateOnly), e.EndDate.Format(time.DateOnly), e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }
