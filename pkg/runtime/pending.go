// pkg/runtime/pending.go
package runtime

import "context"

// Pending is a managed-language pending computation: work that has been
// constructed but not yet executed. Constructing one is cheap and must not
// run any of the body; the cooperative scheduler runs it later.
type Pending struct {
	run func(ctx context.Context) (any, error)
}

func NewPending(run func(ctx context.Context) (any, error)) *Pending {
	return &Pending{run: run}
}

// Run executes the computation body. Only the scheduler calls this.
func (p *Pending) Run(ctx context.Context) (any, error) {
	return p.run(ctx)
}
