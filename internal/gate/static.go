package gate

import (
	"context"

	"github.com/keyward/keyward/internal/logger"
	"github.com/keyward/keyward/pkg/types"
)

// StaticGate returns a fixed decision without operator interaction.
// Used for headless deployments where an out-of-band policy already
// decided (GATE_MODE=approve) and as a hard off switch
// (GATE_MODE=deny).
type StaticGate struct {
	decision Decision
}

// NewStaticGate creates a gate that always returns the given decision.
func NewStaticGate(decision Decision) *StaticGate {
	return &StaticGate{decision: decision}
}

// Confirm logs the summary and returns the configured decision.
func (g *StaticGate) Confirm(ctx context.Context, summary *types.TxSummary) (Decision, error) {
	logger.Info(ctx, "static gate decision",
		"decision", g.decision.String(),
		"origin", summary.Origin,
		"address", summary.Address,
		"nonce", summary.Nonce,
		"chain_id", summary.ChainID,
	)
	return g.decision, nil
}

var _ Gate = (*StaticGate)(nil)
