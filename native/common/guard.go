package common

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// RoleView answers whether an address holds a named capability.
type RoleView interface {
	HasRole(role string, addr []byte) bool
}

// RoleError reports a capability check failure carrying the rejected caller.
type RoleError struct {
	Role   string
	Caller [20]byte
}

// Error satisfies the error interface.
func (e *RoleError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("unauthorized: caller 0x%s lacks %s", hex.EncodeToString(e.Caller[:]), e.Role)
}

// RequireRole enforces that the caller holds the named capability. A nil view
// denies every caller so modules fail closed until roles are wired.
func RequireRole(view RoleView, role string, caller [20]byte) error {
	if view == nil || !view.HasRole(role, caller[:]) {
		return &RoleError{Role: role, Caller: caller}
	}
	return nil
}
