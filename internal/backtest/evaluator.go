package backtest

import "fmt"

// EvaluateForward scores an already chosen step against a forward window pair that the
// optimizer never saw. An empty forward window is the tail of history and yields zeros.
func EvaluateForward(step AllocationStep, a, b PriceWindow) (Returns, error) {
	if !step.Valid() {
		return Returns{}, fmt.Errorf("allocation step %d outside grid", step)
	}
	if len(a) == 0 && len(b) == 0 {
		return Returns{}, nil
	}
	if err := checkAligned(a, b); err != nil {
		return Returns{}, err
	}
	normA, err := Normalize(a.Closes())
	if err != nil {
		return Returns{}, err
	}
	normB, err := Normalize(b.Closes())
	if err != nil {
		return Returns{}, err
	}
	return Returns{
		A:         ReturnPercent(normA),
		B:         ReturnPercent(normB),
		Portfolio: ReturnPercent(Blend(normA, normB, step)),
	}, nil
}
