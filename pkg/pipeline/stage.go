// Package pipeline holds the types shared by the decode bridge stages and
// the generic stage contract.
package pipeline

import (
	"context"
)

// Stage is one synchronous processing step.
type Stage[In, Out any] interface {
	// Execute transforms input into output.
	Execute(ctx context.Context, input In) (Out, error)
}
