// Package hotkeys delivers the global stop and pause keys into a
// running engine. The hook runs outside the worker goroutine, so the
// keys work while the engine owns the pointer and keyboard.
package hotkeys

import (
	hook "github.com/robotn/gohook"
	"go.uber.org/zap"

	"github.com/replaykit/replaykit/internal/engine"
)

// Stop and pause-toggle keys, matching the recorded-playback bindings.
const (
	stopKey  = 's'
	pauseKey = 'p'
)

// Listen starts the global keyboard hook and routes the bound keys to
// sig. The returned release function ends the hook; call it once the
// run finishes.
func Listen(sig *engine.Signals, log *zap.Logger) func() {
	if log == nil {
		log = zap.NewNop()
	}
	evChan := hook.Start()
	go func() {
		for ev := range evChan {
			if ev.Kind != hook.KeyDown {
				continue
			}
			switch ev.Keychar {
			case stopKey:
				log.Info("stop key pressed")
				sig.Stop()
			case pauseKey:
				sig.TogglePause()
				log.Info("pause key pressed", zap.Bool("paused", sig.IsPaused()))
			}
		}
	}()
	return hook.End
}
