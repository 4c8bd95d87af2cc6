package gov

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotAdmin          = errors.New("gov: caller is not the timelock admin")
	ErrNilAction         = errors.New("gov: operation action must not be nil")
	ErrOperationNotFound = errors.New("gov: operation not found")
	ErrOperationPending  = errors.New("gov: operation delay has not elapsed")
	ErrOperationDone     = errors.New("gov: operation already executed")
)

// OperationState tracks a scheduled operation through its lifecycle.
type OperationState uint8

const (
	StateUnknown OperationState = iota
	StatePending
	StateReady
	StateExecuted
	StateCancelled
)

func (s OperationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateExecuted:
		return "executed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Operation is a delayed administrative action.
type Operation struct {
	ID          uuid.UUID
	Description string
	ReadyAt     time.Time
	State       OperationState
	action      func() error
}

// Timelock queues administrative actions behind a fixed delay so operators
// have a window to observe and cancel a bad change before it lands.
type Timelock struct {
	mu    sync.Mutex
	admin [20]byte
	delay time.Duration
	ops   map[uuid.UUID]*Operation
	clock func() time.Time
}

// NewTimelock constructs a timelock administered by a single address.
func NewTimelock(admin [20]byte, delay time.Duration) *Timelock {
	if delay < 0 {
		delay = 0
	}
	return &Timelock{
		admin: admin,
		delay: delay,
		ops:   make(map[uuid.UUID]*Operation),
		clock: time.Now,
	}
}

// SetClock overrides the time source for deterministic tests.
func (t *Timelock) SetClock(clock func() time.Time) {
	if t == nil || clock == nil {
		return
	}
	t.clock = clock
}

// Delay reports the configured execution delay.
func (t *Timelock) Delay() time.Duration { return t.delay }

// Schedule queues an action and returns its operation ID. The action becomes
// executable once the configured delay has elapsed.
func (t *Timelock) Schedule(caller [20]byte, description string, action func() error) (uuid.UUID, error) {
	if caller != t.admin {
		return uuid.Nil, ErrNotAdmin
	}
	if action == nil {
		return uuid.Nil, ErrNilAction
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := uuid.New()
	t.ops[id] = &Operation{
		ID:          id,
		Description: description,
		ReadyAt:     t.clock().Add(t.delay),
		State:       StatePending,
		action:      action,
	}
	return id, nil
}

// Execute runs a scheduled operation once its delay has elapsed.
func (t *Timelock) Execute(caller [20]byte, id uuid.UUID) error {
	if caller != t.admin {
		return ErrNotAdmin
	}
	t.mu.Lock()
	op, ok := t.ops[id]
	if !ok {
		t.mu.Unlock()
		return ErrOperationNotFound
	}
	switch op.State {
	case StateExecuted:
		t.mu.Unlock()
		return ErrOperationDone
	case StateCancelled:
		t.mu.Unlock()
		return ErrOperationNotFound
	}
	if t.clock().Before(op.ReadyAt) {
		t.mu.Unlock()
		return fmt.Errorf("%w: ready at %s", ErrOperationPending, op.ReadyAt.UTC().Format(time.RFC3339))
	}
	op.State = StateExecuted
	action := op.action
	op.action = nil
	t.mu.Unlock()

	return action()
}

// Cancel withdraws a pending operation before it executes.
func (t *Timelock) Cancel(caller [20]byte, id uuid.UUID) error {
	if caller != t.admin {
		return ErrNotAdmin
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	if !ok || op.State == StateCancelled {
		return ErrOperationNotFound
	}
	if op.State == StateExecuted {
		return ErrOperationDone
	}
	op.State = StateCancelled
	op.action = nil
	return nil
}

// Operation returns a snapshot of the identified operation.
func (t *Timelock) Operation(id uuid.UUID) (Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	if !ok {
		return Operation{}, ErrOperationNotFound
	}
	snapshot := *op
	snapshot.action = nil
	if snapshot.State == StatePending && !t.clock().Before(snapshot.ReadyAt) {
		snapshot.State = StateReady
	}
	return snapshot, nil
}
