package cart

import (
	"context"
	"sync"
)

type HookPhase string

const (
	HookBefore HookPhase = "before"
	HookAfter  HookPhase = "after"
)

// HookEvent is the immutable view handed to observers. Outcome is nil on
// the before phase.
type HookEvent struct {
	Operation string
	Phase     HookPhase
	Input     map[string]any
	Outcome   *Envelope
}

// Hook observes a mutation. Hooks record or side-effect only; they
// cannot alter inputs, outcomes or control flow.
type Hook func(ctx context.Context, ev HookEvent)

// Hooks is an ordered registry of observer callbacks per operation.
type Hooks struct {
	mu   sync.RWMutex
	byOp map[string][]Hook
}

func NewHooks() *Hooks {
	return &Hooks{byOp: make(map[string][]Hook)}
}

// Register appends a hook for the named operation, invoked in
// registration order on both phases.
func (h *Hooks) Register(operation string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byOp[operation] = append(h.byOp[operation], hook)
}

func (h *Hooks) emit(ctx context.Context, ev HookEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	hooks := h.byOp[ev.Operation]
	h.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, ev)
	}
}
