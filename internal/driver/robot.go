package driver

import (
	"strings"
	"time"

	"github.com/go-vgo/robotgo"

	rperrors "github.com/replaykit/replaykit/internal/errors"
	"github.com/replaykit/replaykit/internal/workflow"
)

// Pointer positions inside this square at the top-left corner trigger
// the failsafe abort.
const failsafeMargin = 10

// Robot drives the real desktop through robotgo.
type Robot struct {
	// Failsafe aborts any call made while the pointer sits in the
	// top-left screen corner.
	Failsafe bool
}

func NewRobot(failsafe bool) *Robot {
	return &Robot{Failsafe: failsafe}
}

// checkFailsafe is consulted before every injected event.
func (r *Robot) checkFailsafe() error {
	if !r.Failsafe {
		return nil
	}
	x, y := robotgo.Location()
	if x <= failsafeMargin && y <= failsafeMargin {
		return rperrors.ErrFailsafe
	}
	return nil
}

func (r *Robot) Click() error {
	if err := r.checkFailsafe(); err != nil {
		return err
	}
	robotgo.Click("left", false)
	return nil
}

func (r *Robot) ClickAt(x, y int) error {
	if err := r.checkFailsafe(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	robotgo.Click("left", false)
	return nil
}

func (r *Robot) TripleClick() error {
	if err := r.checkFailsafe(); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		robotgo.Click("left", false)
		robotgo.MilliSleep(50)
	}
	return nil
}

func (r *Robot) TypeText(s string, interval time.Duration) error {
	if interval <= 0 {
		if err := r.checkFailsafe(); err != nil {
			return err
		}
		robotgo.TypeStr(s)
		return nil
	}
	for _, ch := range s {
		if err := r.checkFailsafe(); err != nil {
			return err
		}
		robotgo.TypeStr(string(ch))
		time.Sleep(interval)
	}
	return nil
}

func (r *Robot) PressKey(key string, mods ...string) error {
	if err := r.checkFailsafe(); err != nil {
		return err
	}
	args := make([]interface{}, len(mods))
	for i, mod := range mods {
		args[i] = normalizeModifier(mod)
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return rperrors.NewInjectionFailure("key tap "+key, err)
	}
	return nil
}

func (r *Robot) Scroll(amount int) error {
	if err := r.checkFailsafe(); err != nil {
		return err
	}
	robotgo.Scroll(0, amount)
	return nil
}

func (r *Robot) MoveTo(x, y int) error {
	if err := r.checkFailsafe(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	return nil
}

func (r *Robot) Position() (int, int) {
	return robotgo.Location()
}

func (r *Robot) ClearField(method string) error {
	switch method {
	case workflow.MethodTripleClick:
		if err := r.TripleClick(); err != nil {
			return err
		}
		robotgo.MilliSleep(200)
		return r.PressKey("delete")
	case workflow.MethodBackspace:
		// Bounded burst, enough for typical form fields.
		for i := 0; i < 50; i++ {
			if err := r.PressKey("backspace"); err != nil {
				return err
			}
			robotgo.MilliSleep(10)
		}
		return nil
	default: // ctrl_a
		if err := r.PressKey("a", "ctrl"); err != nil {
			return err
		}
		robotgo.MilliSleep(200)
		return r.PressKey("delete")
	}
}

// normalizeModifier maps common modifier aliases onto robotgo's names.
func normalizeModifier(mod string) string {
	switch strings.ToLower(mod) {
	case "command", "cmd", "super":
		return "command"
	case "control", "ctrl":
		return "control"
	case "alt", "option":
		return "alt"
	case "shift":
		return "shift"
	}
	return mod
}
