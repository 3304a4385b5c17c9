package core

import (
	"errors"
	"fmt"
)

// ErrRoundBudget is returned once a response uses more tool rounds than
// its budget allows.
var ErrRoundBudget = errors.New("tool round budget exhausted")

// RoundBudget counts the tool rounds of one response. A budget belongs to a
// single tool loop and is not safe for concurrent use.
type RoundBudget struct {
	limit int
	used  int
}

// NewRoundBudget creates a budget of limit rounds. A limit <= 0 is unlimited.
func NewRoundBudget(limit int) *RoundBudget {
	return &RoundBudget{limit: max(limit, 0)}
}

// Take consumes one round.
func (b *RoundBudget) Take() error {
	b.used++
	if b.limit > 0 && b.used > b.limit {
		return fmt.Errorf("%w: %d of %d", ErrRoundBudget, b.used, b.limit)
	}
	return nil
}

// Used returns the rounds consumed so far, including a rejected one.
func (b *RoundBudget) Used() int { return b.used }

// Left returns the rounds still available, or -1 when unlimited.
func (b *RoundBudget) Left() int {
	if b.limit == 0 {
		return -1
	}
	return max(b.limit-b.used, 0)
}
