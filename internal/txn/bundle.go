package txn

import (
	"context"
	"errors"
	"fmt"
)

// Error definitions for zero-tolerance error handling
var (
	ErrEmptyBundle      = errors.New("bundle has no steps")
	ErrMissingSender    = errors.New("bundle has no sender")
	ErrNotValidated     = errors.New("bundle was not validated before submission")
	ErrBundleConsumed   = errors.New("bundle was already submitted or discarded")
	ErrDryRunFailed     = errors.New("bundle dry-run failed")
	ErrSubmissionFailed = errors.New("bundle submission failed")
)

// DryRunResult is the executor's verdict on a simulated bundle.
type DryRunResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Succeeded reports whether the simulation executed cleanly.
func (r *DryRunResult) Succeeded() bool {
	return r != nil && r.Status == "success"
}

// SubmitResult is the executor's report for a landed bundle.
type SubmitResult struct {
	Digest string `json:"digest"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Executor signs, simulates and submits bundles. Implementations talk to the
// chain; tests substitute fakes.
type Executor interface {
	DryRun(ctx context.Context, b *Bundle) (*DryRunResult, error)
	Submit(ctx context.Context, b *Bundle) (*SubmitResult, error)
}

// Bundle is an ordered, all-or-nothing sequence of instruction steps.
// It is exclusively owned by one rebalance cycle: built incrementally,
// validated, then either submitted once or discarded. There is no partial
// apply; Submit refuses to run without a passing Validate.
type Bundle struct {
	sender    string
	steps     []Step
	exec      Executor
	validated bool
	consumed  bool
}

// NewBundle creates an empty bundle for the given sender.
func NewBundle(sender string, exec Executor) *Bundle {
	return &Bundle{sender: sender, exec: exec}
}

// Sender returns the designated sender address.
func (b *Bundle) Sender() string {
	return b.sender
}

// Len returns the number of accumulated steps.
func (b *Bundle) Len() int {
	return len(b.steps)
}

// Steps returns a copy of the accumulated steps, in order.
func (b *Bundle) Steps() []Step {
	out := make([]Step, len(b.steps))
	copy(out, b.steps)
	return out
}

// Append adds a step and returns a handle to its coin output. Appending
// invalidates any previous dry-run.
func (b *Bundle) Append(s Step) CoinRef {
	b.validated = false
	b.steps = append(b.steps, s)
	return CoinRef{Step: len(b.steps) - 1}
}

// Validate dry-runs the bundle against the chain. A failing simulation
// returns ErrDryRunFailed and leaves the bundle unsubmittable.
func (b *Bundle) Validate(ctx context.Context) error {
	if b.consumed {
		return ErrBundleConsumed
	}
	if b.sender == "" {
		return ErrMissingSender
	}
	if len(b.steps) == 0 {
		return ErrEmptyBundle
	}

	res, err := b.exec.DryRun(ctx, b)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDryRunFailed, err)
	}
	if !res.Succeeded() {
		return fmt.Errorf("%w: %s", ErrDryRunFailed, res.Error)
	}

	b.validated = true
	return nil
}

// Submit signs and submits the bundle as a single unit. It requires a
// passing Validate since the last mutation; afterwards the bundle is
// consumed and cannot be reused.
func (b *Bundle) Submit(ctx context.Context) (*SubmitResult, error) {
	if b.consumed {
		return nil, ErrBundleConsumed
	}
	if !b.validated {
		return nil, ErrNotValidated
	}

	b.consumed = true
	res, err := b.exec.Submit(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	if res.Status != "success" {
		return res, fmt.Errorf("%w: %s", ErrSubmissionFailed, res.Error)
	}
	return res, nil
}
