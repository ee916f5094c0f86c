package engine

import (
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/replaykit/replaykit/internal/config"
	rperrors "github.com/replaykit/replaykit/internal/errors"
	"github.com/replaykit/replaykit/internal/screen"
	"github.com/replaykit/replaykit/internal/workflow"
)

// fakeDriver records every primitive call instead of touching the OS.
type fakeDriver struct {
	mu       sync.Mutex
	calls    []string
	typed    []string
	x, y     int
	failOps  int // injection failures to return before succeeding
	failsafe bool
}

func (d *fakeDriver) record(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failsafe {
		return rperrors.ErrFailsafe
	}
	if d.failOps > 0 {
		d.failOps--
		return rperrors.NewInjectionFailure(call, fmt.Errorf("injected fault"))
	}
	d.calls = append(d.calls, call)
	return nil
}

func (d *fakeDriver) Click() error { return d.record("click") }

func (d *fakeDriver) ClickAt(x, y int) error {
	d.x, d.y = x, y
	return d.record(fmt.Sprintf("click_at(%d,%d)", x, y))
}
func (d *fakeDriver) TripleClick() error { return d.record("triple_click") }

func (d *fakeDriver) TypeText(s string, _ time.Duration) error {
	if err := d.record("type"); err != nil {
		return err
	}
	d.mu.Lock()
	d.typed = append(d.typed, s)
	d.mu.Unlock()
	return nil
}
func (d *fakeDriver) PressKey(key string, _ ...string) error { return d.record("key:" + key) }

func (d *fakeDriver) Scroll(amount int) error { return d.record(fmt.Sprintf("scroll(%d)", amount)) }

func (d *fakeDriver) MoveTo(x, y int) error {
	d.x, d.y = x, y
	return d.record(fmt.Sprintf("move(%d,%d)", x, y))
}
func (d *fakeDriver) Position() (int, int) { return d.x, d.y }

func (d *fakeDriver) ClearField(method string) error { return d.record("clear:" + method) }

func (d *fakeDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// fakeScreen scores every capture with a fixed score.
type fakeScreen struct {
	score float64
	at    image.Point
}

func (f *fakeScreen) Capture() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}
func (f *fakeScreen) Search(_, _ image.Image) (image.Point, float64) {
	return f.at, f.score
}

func fakeTemplates(string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.PauseAfter = 0
	cfg.TypingInterval = 0
	cfg.BatchRowDelay = 0
	cfg.PollInterval = 0.001
	cfg.ImageTimeout = 0
	return cfg
}

func testController(drv *fakeDriver, scr *fakeScreen, cfg config.Config) *Controller {
	if scr == nil {
		scr = &fakeScreen{}
	}
	return New(Options{
		Driver:    drv,
		Matcher:   screen.NewMatcher(scr, scr),
		Config:    cfg,
		Templates: fakeTemplates,
	})
}

func boolp(b bool) *bool        { return &b }
func intp(i int) *int           { return &i }
func floatp(f float64) *float64 { return &f }

func TestEmptyWorkflowCompletesImmediately(t *testing.T) {
	drv := &fakeDriver{}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(&workflow.Workflow{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Errorf("status = %s", res.Status)
	}
	if len(res.Actions) != 0 || drv.callCount() != 0 {
		t.Errorf("expected no side effects, got %d outcomes, %d calls", len(res.Actions), drv.callCount())
	}
	if ctl.State() != StateCompleted {
		t.Errorf("state = %s", ctl.State())
	}
}

func TestAllDisabledActionsAreSkipped(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 2, Enabled: boolp(false)},
		{Kind: workflow.KindType, Text: "hi", Enabled: boolp(false)},
		{Kind: workflow.KindScroll, Amount: 5, Enabled: boolp(false)},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Actions) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(res.Actions))
	}
	for _, out := range res.Actions {
		if out.Status != ActionSkipped {
			t.Errorf("action %d status = %s", out.Index, out.Status)
		}
	}
	if drv.callCount() != 0 {
		t.Errorf("expected zero driver calls, got %d", drv.callCount())
	}
}

func TestStopBeforeRunYieldsStopped(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, nil, fastConfig())
	ctl.Signals().Stop()
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunStopped {
		t.Errorf("status = %s", res.Status)
	}
	if len(res.Actions) != 0 || drv.callCount() != 0 {
		t.Error("expected zero executed actions")
	}
}

func TestRunResolvesVariablesAndDispatches(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 10, Y: 10},
		{Kind: workflow.KindType, Text: "{batch:name}"},
		{Kind: workflow.KindWait, Duration: floatp(0.01)},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(wf, map[string]string{"name": "Ann"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Fatalf("status = %s, error = %v", res.Status, res.Error)
	}
	for _, out := range res.Actions {
		if out.Status != ActionSucceeded {
			t.Errorf("action %d status = %s", out.Index, out.Status)
		}
	}
	if len(drv.typed) != 1 || drv.typed[0] != "Ann" {
		t.Errorf("typed = %v", drv.typed)
	}
	if drv.calls[0] != "click_at(10,10)" {
		t.Errorf("calls = %v", drv.calls)
	}
}

func TestUnresolvedPlaceholderAbortsRunByDefault(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindType, Text: "{batch:name}"},
		{Kind: workflow.KindClick, X: 1, Y: 1},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(wf, map[string]string{"other": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if res.FailedIndex != 0 {
		t.Errorf("failed index = %d", res.FailedIndex)
	}
	if res.Error == nil || res.Error.Type != rperrors.UnresolvedPlaceholder {
		t.Errorf("error = %+v", res.Error)
	}
	if drv.callCount() != 0 {
		t.Error("the click after the failed type must not run")
	}
	if ctl.State() != StateFailed {
		t.Errorf("state = %s", ctl.State())
	}
}

func TestContinueOnErrorPolicy(t *testing.T) {
	cfg := fastConfig()
	cfg.AbortOnError = false
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindType, Text: "{batch:missing}"},
		{Kind: workflow.KindClick, X: 1, Y: 1},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, nil, cfg)
	res, err := ctl.Run(wf, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Actions[0].Status != ActionFailed || res.Actions[1].Status != ActionSucceeded {
		t.Errorf("outcomes = %+v", res.Actions)
	}
}

func TestRetryBudgetRecoversTransientFailure(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1, Retries: intp(2)},
	}}
	drv := &fakeDriver{failOps: 2}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Fatalf("status = %s, error = %v", res.Status, res.Error)
	}
	if res.Actions[0].Attempts != 3 {
		t.Errorf("attempts = %d", res.Actions[0].Attempts)
	}
}

func TestRetryBudgetExhaustedFailsAction(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1, Retries: intp(1)},
	}}
	drv := &fakeDriver{failOps: 5}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunFailed {
		t.Fatalf("status = %s", res.Status)
	}
	out := res.Actions[0]
	if out.Status != ActionFailed || out.Attempts != 2 {
		t.Errorf("outcome = %+v", out)
	}
	if out.Error == nil || out.Error.Type != rperrors.InputInjectionFailure {
		t.Errorf("error = %+v", out.Error)
	}
}

func TestWaitForImageTimeoutIsMatchTimeout(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindWaitForImage, ImagePath: "missing.png", ImageName: "button",
			Timeout: floatp(0)},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, &fakeScreen{score: 0.1}, fastConfig())
	start := time.Now()
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Error == nil || res.Error.Type != rperrors.MatchTimeout {
		t.Errorf("error = %+v", res.Error)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("zero timeout must not block")
	}
}

func TestFindImageMovesAndStoresLocation(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindFindImage, ImagePath: "button.png", ClickAfter: false},
		{Kind: workflow.KindClick, UseCurrentPosition: true},
	}}
	drv := &fakeDriver{}
	ctl := testController(drv, &fakeScreen{score: 0.95, at: image.Pt(120, 80)}, fastConfig())
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Fatalf("status = %s, error = %v", res.Status, res.Error)
	}
	if drv.calls[0] != "move(120,80)" || drv.calls[1] != "click" {
		t.Errorf("calls = %v", drv.calls)
	}
	if ctl.lastLoc == nil || ctl.lastLoc.X != 120 {
		t.Errorf("lastLoc = %+v", ctl.lastLoc)
	}
}

func TestFailsafeAbortsAsUserStop(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1},
		{Kind: workflow.KindType, Text: "never typed"},
	}}
	drv := &fakeDriver{failsafe: true}
	ctl := testController(drv, nil, fastConfig())
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunStopped {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Actions[0].Status != ActionAborted {
		t.Errorf("outcome = %+v", res.Actions[0])
	}
	if !ctl.Signals().IsStopped() {
		t.Error("failsafe must latch the stop signal")
	}
}

func TestPauseAndResume(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1},
		{Kind: workflow.KindClick, X: 2, Y: 2},
	}}
	cfg := fastConfig()
	cfg.PauseAfter = 0.05
	drv := &fakeDriver{}
	ctl := testController(drv, nil, cfg)
	ctl.Signals().Pause()

	done := make(chan *RunResult, 1)
	go func() {
		res, _ := ctl.Run(wf, nil)
		done <- res
	}()

	// The worker must park without dispatching anything.
	deadline := time.Now().Add(time.Second)
	for ctl.State() != StatePaused {
		if time.Now().After(deadline) {
			t.Fatal("controller never reached paused state")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if drv.callCount() != 0 {
		t.Errorf("dispatched while paused: %v", drv.calls)
	}

	ctl.Signals().Resume()
	select {
	case res := <-done:
		if res.Status != RunCompleted {
			t.Errorf("status = %s", res.Status)
		}
		if drv.callCount() != 2 {
			t.Errorf("calls = %v", drv.calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish after resume")
	}
}

func TestStopWhilePausedStopsRun(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1},
	}}
	ctl := testController(&fakeDriver{}, nil, fastConfig())
	ctl.Signals().Pause()

	done := make(chan *RunResult, 1)
	go func() {
		res, _ := ctl.Run(wf, nil)
		done <- res
	}()

	deadline := time.Now().Add(time.Second)
	for ctl.State() != StatePaused {
		if time.Now().After(deadline) {
			t.Fatal("controller never paused")
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctl.Signals().Stop()

	select {
	case res := <-done:
		if res.Status != RunStopped {
			t.Errorf("status = %s", res.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestControllerIsSingleUse(t *testing.T) {
	ctl := testController(&fakeDriver{}, nil, fastConfig())
	if _, err := ctl.Run(&workflow.Workflow{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctl.Run(&workflow.Workflow{}, nil); err != ErrControllerReused {
		t.Errorf("expected ErrControllerReused, got %v", err)
	}
}

func TestSingleVariableModeIgnoresPlaceholderNames(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindType, Text: "{batch:whatever}"},
	}}
	drv := &fakeDriver{}
	value := "one-value"
	ctl := New(Options{
		Driver:      drv,
		Matcher:     screen.NewMatcher(&fakeScreen{}, &fakeScreen{}),
		Config:      fastConfig(),
		Templates:   fakeTemplates,
		SingleValue: &value,
	})
	res, err := ctl.Run(wf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunCompleted {
		t.Fatalf("status = %s, error = %v", res.Status, res.Error)
	}
	if len(drv.typed) != 1 || drv.typed[0] != "one-value" {
		t.Errorf("typed = %v", drv.typed)
	}
}

func TestReporterSeesEveryBoundary(t *testing.T) {
	wf := &workflow.Workflow{Actions: []workflow.Action{
		{Kind: workflow.KindClick, X: 1, Y: 1},
		{Kind: workflow.KindScroll, Amount: 3, Enabled: boolp(false)},
	}}
	var mu sync.Mutex
	var events []Event
	ctl := New(Options{
		Driver:    &fakeDriver{},
		Matcher:   screen.NewMatcher(&fakeScreen{}, &fakeScreen{}),
		Config:    fastConfig(),
		Templates: fakeTemplates,
		Reporter: func(e Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	if _, err := ctl.Run(wf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// click: running + succeeded; disabled scroll: skipped.
	if len(events) != 3 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Status != "running" || events[1].Status != "succeeded" || events[2].Status != "skipped" {
		t.Errorf("events = %+v", events)
	}
	if events[0].Step != 1 || events[0].Total != 2 {
		t.Errorf("event indices = %+v", events[0])
	}
}
