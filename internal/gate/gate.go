// Package gate is the human confirmation checkpoint. Signing cannot
// proceed until an operator has seen the transaction summary and
// explicitly approved it; a rejection is a clean, expected outcome, not
// an error.
package gate

import (
	"context"

	"github.com/keyward/keyward/pkg/types"
)

// Decision is the two-outcome result of the confirmation gate.
type Decision int

const (
	// Rejected means the operator declined. The flow terminates; nothing
	// may be encoded or signed afterwards.
	Rejected Decision = iota

	// Approved means the operator accepted and signing may proceed.
	Approved
)

func (d Decision) String() string {
	if d == Approved {
		return "approved"
	}
	return "rejected"
}

// Gate presents a transaction summary to a human operator and suspends
// until a decision is made. It is consulted exactly once per signing
// request and never retried. The wait is operator-paced and unbounded;
// only context cancellation cuts it short, and that surfaces as an
// error, not a decision.
type Gate interface {
	Confirm(ctx context.Context, summary *types.TxSummary) (Decision, error)
}
