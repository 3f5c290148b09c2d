package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/keyward/keyward/pkg/types"
)

// TerminalGate prompts the operator on an interactive terminal. One
// confirmation at a time: concurrent requests queue on the mutex so the
// operator always sees a single pending summary.
type TerminalGate struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalGate creates a gate on stdin/stdout. It refuses to start
// when stdin is not a terminal: a headless deployment must pick an
// explicit gate mode instead of silently blocking on a pipe.
func NewTerminalGate() (*TerminalGate, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; use GATE_MODE=approve or GATE_MODE=deny for headless operation")
	}

	return &TerminalGate{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}, nil
}

// newTerminalGateFor wires explicit streams; used by tests.
func newTerminalGateFor(in io.Reader, out io.Writer) *TerminalGate {
	return &TerminalGate{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm renders the summary and blocks until the operator answers
// yes or no. Context cancellation aborts the wait with an error.
func (g *TerminalGate) Confirm(ctx context.Context, summary *types.TxSummary) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	renderSummary(g.out, summary)

	type answer struct {
		line string
		err  error
	}
	answerCh := make(chan answer, 1)

	go func() {
		for {
			fmt.Fprint(g.out, "Approve this transaction? [y/n]: ")
			line, err := g.in.ReadString('\n')
			if err != nil {
				answerCh <- answer{err: err}
				return
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				answerCh <- answer{line: "y"}
				return
			case "n", "no":
				answerCh <- answer{line: "n"}
				return
			}
			fmt.Fprintln(g.out, "Please answer y or n.")
		}
	}()

	select {
	case <-ctx.Done():
		return Rejected, fmt.Errorf("confirmation aborted: %w", ctx.Err())
	case a := <-answerCh:
		if a.err != nil {
			return Rejected, fmt.Errorf("failed to read operator decision: %w", a.err)
		}
		if a.line == "y" {
			return Approved, nil
		}
		return Rejected, nil
	}
}

// renderSummary prints the transaction field by field, the same set of
// fields that end up in the signed bytes.
func renderSummary(w io.Writer, s *types.TxSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌─ Signing request ─────────────────────────────────")
	fmt.Fprintf(w, "│ Origin:         %s\n", s.Origin)
	fmt.Fprintf(w, "│ Address:        %s\n", s.Address)
	fmt.Fprintf(w, "│ Call:           %s\n", string(s.Call))
	fmt.Fprintf(w, "│ Nonce:          %d\n", s.Nonce)
	fmt.Fprintf(w, "│ Chain ID:       %d\n", s.ChainID)
	fmt.Fprintf(w, "│ Max prio fee:   %d bips\n", s.MaxPriorityFeeBips)
	fmt.Fprintf(w, "│ Max fee:        %d\n", s.MaxFee)
	fmt.Fprintf(w, "│ Gas limit:      %s\n", formatGasLimit(s.GasLimit))
	fmt.Fprintln(w, "└───────────────────────────────────────────────────")
}

func formatGasLimit(gasLimit *[]uint64) string {
	if gasLimit == nil {
		return "not set"
	}
	if len(*gasLimit) == 0 {
		return "[]"
	}
	parts := make([]string, len(*gasLimit))
	for i, g := range *gasLimit {
		parts[i] = fmt.Sprintf("%d", g)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var _ Gate = (*TerminalGate)(nil)
