package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a native module currently rejects mutations.
type PauseView interface {
	IsPaused(module string) bool
}

// PauseFunc adapts a plain function to the PauseView interface.
type PauseFunc func(module string) bool

// IsPaused implements PauseView.
func (f PauseFunc) IsPaused(module string) bool {
	if f == nil {
		return false
	}
	return f(module)
}

// Guard returns ErrModulePaused when the module is paused. A nil view or an
// empty module name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
