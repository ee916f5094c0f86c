// Package driver injects mouse and keyboard events. Calls return once
// the OS has been asked to deliver the event; they do not wait for the
// target application to react.
package driver

import "time"

// Driver is the set of input primitives the engine dispatches to.
type Driver interface {
	// Click presses the left button at the current pointer position.
	Click() error
	// ClickAt moves to (x, y) and clicks.
	ClickAt(x, y int) error
	// TripleClick clicks three times at the current position.
	TripleClick() error
	// TypeText types s, pausing interval between characters.
	TypeText(s string, interval time.Duration) error
	// PressKey taps a named key with optional modifiers.
	PressKey(key string, mods ...string) error
	// Scroll scrolls vertically by amount (positive is up).
	Scroll(amount int) error
	// MoveTo places the pointer at (x, y).
	MoveTo(x, y int) error
	// Position reports the current pointer position.
	Position() (x, y int)
	// ClearField empties the focused input using the given method
	// (ctrl_a, triple_click, backspace).
	ClearField(method string) error
}
