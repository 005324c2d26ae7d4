package common

import "errors"

// ErrModulePaused is returned by Guard when the named module has been halted
// by the operator.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the operator pause switches to native modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating entry points while the module is paused. A nil view
// or empty module name disables the gate.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
