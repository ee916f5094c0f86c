// Package engine turns an ordered action list into real input events
// and screen queries, enforcing timing, retries, substitution, and
// cooperative cancellation.
package engine

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/config"
	"github.com/replaykit/replaykit/internal/driver"
	rperrors "github.com/replaykit/replaykit/internal/errors"
	"github.com/replaykit/replaykit/internal/screen"
	"github.com/replaykit/replaykit/internal/subst"
	"github.com/replaykit/replaykit/internal/workflow"
)

// State of the execution controller.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// pausePoll is how often a paused worker re-checks its flags.
const pausePoll = 100 * time.Millisecond

// settle is the short delay inside composite actions (set_value,
// find_image click-after), matching recorded timing.
const settle = 300 * time.Millisecond

// errStopRequested aborts the in-flight action when a stop arrives
// during one of its internal waits.
var errStopRequested = errors.New("stop requested")

// ErrControllerReused is returned by Run on a second use. Terminal
// states are final; construct a new Controller per run so no stale
// pause or stop flag leaks into a later execution.
var ErrControllerReused = errors.New("controller already ran; construct a new one per run")

// TemplateLoader reads a template image for image-guided actions.
type TemplateLoader func(path string) (image.Image, error)

// Options wires a Controller's collaborators. Zero-value fields get
// working defaults.
type Options struct {
	Driver   driver.Driver
	Matcher  *screen.Matcher
	Config   config.Config
	Signals  *Signals
	Reporter Reporter
	Logger   *zap.Logger
	// Templates loads image templates; defaults to screen.LoadTemplate.
	Templates TemplateLoader
	// Capture supplies the diagnostic screenshot on fatal failure.
	Capture func() (image.Image, error)
	// SingleValue switches substitution to single-variable mode:
	// every placeholder takes this value regardless of its name.
	SingleValue *string
}

// Controller executes one workflow run on the calling goroutine.
// It is single-use: terminal states are final.
type Controller struct {
	drv       driver.Driver
	matcher   *screen.Matcher
	cfg       config.Config
	sig       *Signals
	report    Reporter
	log       *zap.Logger
	templates TemplateLoader
	capture   func() (image.Image, error)
	single    *string

	state   atomic.Int32
	started atomic.Bool
	runID   string
	row     int

	// centre of the most recent image match, for a following
	// use_current_position action
	lastLoc *screen.Location
}

// New builds a Controller from o.
func New(o Options) *Controller {
	if o.Signals == nil {
		o.Signals = NewSignals()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Templates == nil {
		o.Templates = screen.LoadTemplate
	}
	return &Controller{
		drv:       o.Driver,
		matcher:   o.Matcher,
		cfg:       o.Config,
		sig:       o.Signals,
		report:    o.Reporter,
		log:       o.Logger,
		templates: o.Templates,
		capture:   o.Capture,
		single:    o.SingleValue,
		runID:     uuid.New().String(),
		row:       -1,
	}
}

// State reports the controller's current state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Signals returns the control signals bound to this controller.
func (c *Controller) Signals() *Signals { return c.sig }

func (c *Controller) setState(s State) { c.state.Store(int32(s)) }

// Run executes the workflow with one variable row (nil for a plain
// run). Actions execute strictly in sequence order. The returned
// RunResult is owned by the caller.
func (c *Controller) Run(wf *workflow.Workflow, row map[string]string) (*RunResult, error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrControllerReused
	}

	res := &RunResult{RunID: c.runID, Row: c.row, Status: RunCompleted, FailedIndex: -1}
	start := time.Now()
	defer func() { res.Duration = time.Since(start).Round(time.Millisecond).String() }()

	// A stop delivered before the run starts wins immediately, with
	// no partial dispatch.
	if c.sig.IsStopped() {
		return c.finishStopped(res, 0), nil
	}

	c.setState(StateRunning)
	c.log.Info("run started",
		zap.String("run_id", c.runID),
		zap.Int("actions", len(wf.Actions)))

	total := len(wf.Actions)
	for i := range wf.Actions {
		a := &wf.Actions[i]

		// Boundary checks: pause first, then stop. Never mid-action,
		// except via the driver failsafe.
		if stopped := c.waitIfPaused(); stopped || c.sig.IsStopped() {
			return c.finishStopped(res, i), nil
		}

		if !a.IsEnabled() {
			out := ActionOutcome{Index: i, ID: a.ID, Kind: a.Kind, Detail: a.Summary(), Status: ActionSkipped}
			res.Actions = append(res.Actions, out)
			c.emit(i+1, total, a, string(ActionSkipped))
			continue
		}

		c.emit(i+1, total, a, "running")

		resolved, rerr := c.resolveAction(a, row)
		if rerr != nil {
			out := ActionOutcome{Index: i, ID: a.ID, Kind: a.Kind, Detail: a.Summary(),
				Status: ActionFailed, Error: asRunError(rerr, a.ID)}
			res.Actions = append(res.Actions, out)
			c.emit(i+1, total, a, string(ActionFailed))
			c.log.Warn("substitution failed", zap.Int("step", i+1), zap.Error(rerr))
			if c.cfg.AbortOnError {
				return c.finishFailed(res, i, out.Error), nil
			}
			continue
		}

		out := c.runAction(i, resolved)
		res.Actions = append(res.Actions, out)
		c.emit(i+1, total, a, string(out.Status))

		switch out.Status {
		case ActionAborted:
			return c.finishStopped(res, i), nil
		case ActionFailed:
			c.log.Warn("action failed",
				zap.Int("step", i+1),
				zap.String("kind", a.Kind),
				zap.Error(out.Error))
			if c.cfg.AbortOnError {
				return c.finishFailed(res, i, out.Error), nil
			}
		}

		// Settle pause between actions, skipped when a stop arrives.
		c.sleep(c.waitAfter(a))
	}

	c.setState(StateCompleted)
	c.log.Info("run completed", zap.String("run_id", c.runID))
	return res, nil
}

func (c *Controller) finishStopped(res *RunResult, step int) *RunResult {
	res.Status = RunStopped
	c.setState(StateStopped)
	c.log.Info("run stopped",
		zap.String("run_id", c.runID),
		zap.Int("step", step+1))
	return res
}

func (c *Controller) finishFailed(res *RunResult, i int, rerr *rperrors.RunError) *RunResult {
	res.Status = RunFailed
	res.FailedIndex = i
	res.Error = rerr
	c.setState(StateFailed)
	c.log.Error("run failed",
		zap.String("run_id", c.runID),
		zap.Int("step", i+1),
		zap.Error(rerr))
	c.captureFailure(i, res)
	return res
}

// captureFailure writes the diagnostic screenshot and outcome when
// configured. Artifact errors are logged, never fatal.
func (c *Controller) captureFailure(i int, res *RunResult) {
	if !c.cfg.ScreenshotOnError || c.capture == nil {
		return
	}
	store, err := artifact.NewStore(c.cfg.ArtifactDir, c.runID)
	if err != nil {
		c.log.Warn("artifact store unavailable", zap.Error(err))
		return
	}
	if img, err := c.capture(); err == nil {
		name := fmt.Sprintf("failure_step_%d.png", i+1)
		if err := store.WriteScreenshot(name, img); err != nil {
			c.log.Warn("screenshot not written", zap.Error(err))
		}
	} else {
		c.log.Warn("screen capture failed", zap.Error(err))
	}
	if err := store.WriteOutcome(res); err != nil {
		c.log.Warn("outcome not written", zap.Error(err))
	}
}

// resolveAction substitutes variables in the text-bearing parameters,
// returning a copy. Substitution is all-or-nothing per parameter; the
// source action is never mutated.
func (c *Controller) resolveAction(a *workflow.Action, row map[string]string) (*workflow.Action, error) {
	resolve := func(s string) (string, error) { return subst.Resolve(s, row) }
	if c.single != nil {
		resolve = func(s string) (string, error) { return subst.ResolveSingle(s, *c.single), nil }
	}

	resolved := *a
	var err error
	if resolved.Text != "" {
		if resolved.Text, err = resolve(a.Text); err != nil {
			return nil, err
		}
	}
	if resolved.Value != "" {
		if resolved.Value, err = resolve(a.Value); err != nil {
			return nil, err
		}
	}
	return &resolved, nil
}

// runAction dispatches one action with its retry budget. A retryable
// failure re-attempts after the settle pause, up to the budget.
func (c *Controller) runAction(i int, a *workflow.Action) ActionOutcome {
	out := ActionOutcome{Index: i, ID: a.ID, Kind: a.Kind, Detail: a.Summary()}
	retries := c.cfg.MaxRetries
	if a.Retries != nil {
		retries = *a.Retries
	}

	start := time.Now()
	defer func() { out.Duration = time.Since(start).Round(time.Millisecond).String() }()

	var err error
	for attempt := 0; ; attempt++ {
		out.Attempts = attempt + 1
		err = c.dispatch(a)
		if err == nil {
			out.Status = ActionSucceeded
			return out
		}
		if errors.Is(err, rperrors.ErrFailsafe) {
			c.sig.Stop()
			out.Status = ActionAborted
			return out
		}
		if errors.Is(err, errStopRequested) {
			out.Status = ActionAborted
			return out
		}
		if attempt >= retries || !rperrors.IsRetryable(err) {
			break
		}
		c.log.Info("retrying action",
			zap.Int("step", i+1),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if !c.sleep(config.Seconds(c.cfg.PauseAfter)) {
			out.Status = ActionAborted
			return out
		}
	}

	out.Status = ActionFailed
	out.Error = asRunError(err, a.ID)
	return out
}

// dispatch performs the action's side effect. Kinds are a closed set,
// checked at load time.
func (c *Controller) dispatch(a *workflow.Action) error {
	switch a.Kind {
	case workflow.KindClick:
		if a.UseCurrentPosition {
			return c.drv.Click()
		}
		return c.drv.ClickAt(a.X, a.Y)

	case workflow.KindType:
		return c.drv.TypeText(a.Text, c.typingInterval(a))

	case workflow.KindKeyPress:
		key := a.Key
		if key == "" {
			key = "enter"
		}
		return c.drv.PressKey(key, a.Modifiers...)

	case workflow.KindSetValue:
		return c.setValue(a)

	case workflow.KindDelete:
		return c.drv.ClearField(a.Method)

	case workflow.KindScroll:
		return c.scroll(a)

	case workflow.KindWait:
		if a.WaitType == "image" {
			return c.waitForImage(a)
		}
		d := 1.0
		if a.Duration != nil {
			d = *a.Duration
		}
		if !c.sleep(config.Seconds(d)) {
			return errStopRequested
		}
		return nil

	case workflow.KindWaitForImage:
		return c.waitForImage(a)

	case workflow.KindFindImage:
		return c.findImage(a)

	case workflow.KindMoveMouse:
		return c.moveMouse(a)
	}
	return fmt.Errorf("unknown action kind %q", a.Kind)
}

// setValue is the composite click + clear + type, with settle pauses
// so the target application keeps up.
func (c *Controller) setValue(a *workflow.Action) error {
	var err error
	if a.UseCurrentPosition {
		err = c.drv.Click()
	} else {
		err = c.drv.ClickAt(a.X, a.Y)
	}
	if err != nil {
		return err
	}
	if !c.sleep(settle) {
		return errStopRequested
	}
	if err := c.drv.ClearField(a.Method); err != nil {
		return err
	}
	if !c.sleep(settle) {
		return errStopRequested
	}
	return c.drv.TypeText(a.Value, c.typingInterval(a))
}

func (c *Controller) scroll(a *workflow.Action) error {
	switch a.ScrollType {
	case "top", "bottom":
		key := "home"
		if a.ScrollType == "bottom" {
			key = "end"
		}
		for i := 0; i < 10; i++ {
			if err := c.drv.PressKey(key); err != nil {
				return err
			}
			if !c.sleep(pausePoll) {
				return errStopRequested
			}
		}
		return nil
	default:
		amount := a.Amount
		if amount == 0 {
			amount = c.cfg.ScrollAmount
		}
		return c.drv.Scroll(amount)
	}
}

func (c *Controller) moveMouse(a *workflow.Action) error {
	x, y := c.drv.Position()
	switch a.Direction {
	case "up":
		y -= a.Distance
	case "down":
		y += a.Distance
	case "left":
		x -= a.Distance
	case "right":
		x += a.Distance
	}
	return c.drv.MoveTo(x, y)
}

// waitForImage polls the matcher until the template appears or the
// timeout elapses. Not finding the image is a MATCH_TIMEOUT failure
// for the action, never a hang.
func (c *Controller) waitForImage(a *workflow.Action) error {
	tmpl, err := c.templates(a.ImagePath)
	if err != nil {
		return fmt.Errorf("loading template: %w", err)
	}
	timeout := c.cfg.ImageTimeout
	if a.Timeout != nil {
		timeout = *a.Timeout
	}
	poll := c.cfg.PollInterval
	if a.CheckInterval != nil {
		poll = *a.CheckInterval
	}

	loc, found, err := c.matcher.Wait(tmpl, c.confidence(a),
		config.Seconds(timeout), config.Seconds(poll), c.sig.Stopped())
	if err != nil {
		return err
	}
	if c.sig.IsStopped() {
		return errStopRequested
	}
	if !found {
		return rperrors.NewMatchTimeout(imageLabel(a), timeout)
	}
	c.lastLoc = &loc
	return nil
}

// findImage is a single lookup: move the pointer to the match centre
// and optionally click it.
func (c *Controller) findImage(a *workflow.Action) error {
	tmpl, err := c.templates(a.ImagePath)
	if err != nil {
		return fmt.Errorf("loading template: %w", err)
	}
	loc, found, err := c.matcher.Locate(tmpl, c.confidence(a))
	if err != nil {
		return err
	}
	if !found {
		return rperrors.NewMatchTimeout(imageLabel(a), 0)
	}
	c.lastLoc = &loc
	if err := c.drv.MoveTo(loc.X, loc.Y); err != nil {
		return err
	}
	if a.ClickAfter {
		if !c.sleep(settle) {
			return errStopRequested
		}
		return c.drv.Click()
	}
	return nil
}

func imageLabel(a *workflow.Action) string {
	if a.ImageName != "" {
		return a.ImageName
	}
	return a.ImagePath
}

func (c *Controller) confidence(a *workflow.Action) float64 {
	if a.Confidence != nil {
		return *a.Confidence
	}
	return c.cfg.Confidence
}

func (c *Controller) typingInterval(a *workflow.Action) time.Duration {
	if a.Interval != nil {
		return config.Seconds(*a.Interval)
	}
	return config.Seconds(c.cfg.TypingInterval)
}

func (c *Controller) waitAfter(a *workflow.Action) time.Duration {
	if a.WaitAfter != nil {
		return config.Seconds(*a.WaitAfter)
	}
	return config.Seconds(c.cfg.PauseAfter)
}

// sleep waits for d, waking early when a stop arrives. Returns false
// if the run should stop.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		return !c.sig.IsStopped()
	}
	select {
	case <-c.sig.Stopped():
		return false
	case <-time.After(d):
		return true
	}
}

// waitIfPaused parks the worker while the pause flag is set,
// re-checking on a short interval. Returns true if a stop arrived
// while paused.
func (c *Controller) waitIfPaused() bool {
	paused := false
	for c.sig.IsPaused() {
		if c.sig.IsStopped() {
			return true
		}
		if !paused {
			paused = true
			c.setState(StatePaused)
			c.log.Info("run paused", zap.String("run_id", c.runID))
		}
		time.Sleep(pausePoll)
	}
	if paused {
		c.setState(StateRunning)
		c.log.Info("run resumed", zap.String("run_id", c.runID))
	}
	return false
}

func (c *Controller) emit(step, total int, a *workflow.Action, status string) {
	if c.report == nil {
		return
	}
	c.report(Event{
		RunID:  c.runID,
		Row:    c.row,
		Step:   step,
		Total:  total,
		Kind:   a.Kind,
		Detail: a.Summary(),
		Status: status,
	})
}

func asRunError(err error, actionID string) *rperrors.RunError {
	var re *rperrors.RunError
	if errors.As(err, &re) {
		if re.ActionID == "" {
			re.ActionID = actionID
		}
		return re
	}
	return &rperrors.RunError{
		Type:     rperrors.InputInjectionFailure,
		Message:  err.Error(),
		ActionID: actionID,
	}
}
