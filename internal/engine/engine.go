// Package engine implements the playback state machine that drives a
// narrated presentation: sequencing slides and segments, scheduling the
// configured delays, reacting to audio lifecycle events, and applying
// navigation intents in the manual modes.
//
// All mutable state is owned by a single goroutine, the [Engine.Run] loop.
// Commands, audio events and expired timers are delivered to the loop over
// channels; deferred work is tagged with the session generation current at
// scheduling time and discarded by the loop if the generation has moved on.
// That one rule is what keeps a superseded clip or timer from ever advancing
// a newer sequence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narradeck/narradeck/internal/deck"
	"github.com/narradeck/narradeck/internal/record"
	"github.com/narradeck/narradeck/internal/segment"
	"github.com/narradeck/narradeck/internal/timing"
	"github.com/narradeck/narradeck/pkg/audio"
)

// ErrNoSlides is returned by [Engine.Start] when the deck is empty. The
// engine performs no transition in that case.
var ErrNoSlides = errors.New("engine: presentation has no slides")

const (
	// zeroSegmentGrace is how long a slide without audio stays visible in
	// narrated mode before the engine advances past it.
	zeroSegmentGrace = 100 * time.Millisecond

	// errorSkipDelay is how long a failed segment's error stays on screen
	// before the engine skips ahead.
	errorSkipDelay = 1 * time.Second

	// noMarker is the empty value of the stale-navigation marker.
	noMarker = -1
)

// Mode is the playback mode of a session.
type Mode int

const (
	// ModeAwaitingStart is the idle state before playback begins and after
	// a restart.
	ModeAwaitingStart Mode = iota

	// ModeNarrated is fully automatic playback: audio drives all
	// advancement.
	ModeNarrated

	// ModeManualSilent is presenter-driven navigation with no audio.
	ModeManualSilent

	// ModeManualAudio is presenter-driven navigation where each visited
	// slide plays its narration, optionally auto-advancing when it ends.
	ModeManualAudio

	// ModeEnded is the closing state after the final slide of a narrated
	// run, held for the configured delay before returning to
	// [ModeAwaitingStart].
	ModeEnded
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAwaitingStart:
		return "AWAITING_START"
	case ModeNarrated:
		return "NARRATED"
	case ModeManualSilent:
		return "MANUAL_SILENT"
	case ModeManualAudio:
		return "MANUAL_AUDIO"
	case ModeEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// ParseMode converts a wire-format mode name into a startable [Mode].
func ParseMode(s string) (Mode, error) {
	switch s {
	case "narrated":
		return ModeNarrated, nil
	case "manual":
		return ModeManualSilent, nil
	case "manual-audio":
		return ModeManualAudio, nil
	default:
		return ModeAwaitingStart, fmt.Errorf("engine: unknown mode %q", s)
	}
}

// Hooks are the engine's outbound notifications, consumed by the serving
// shell. Nil hooks are skipped. Hooks are invoked from the engine loop and
// must not block.
type Hooks struct {
	// OnSlideChange fires whenever the active slide changes, including the
	// initial slide of a run.
	OnSlideChange func(chapter, slide int)

	// OnPlaybackStart fires once when a session leaves AwaitingStart.
	OnPlaybackStart func(mode Mode)

	// OnPlaybackEnd fires when a narrated run completes its final slide.
	OnPlaybackEnd func(elapsed float64)

	// OnSegmentPlayed fires when a narration segment completes normally,
	// in narrated and manual-audio modes. Segments that fail do not count.
	OnSegmentPlayed func(slideKey, segmentID string)

	// OnError fires when a playback error is surfaced to the user.
	// Transient errors dismiss themselves; persistent ones do not.
	OnError func(msg string, transient bool)
}

// Snapshot is a read-only view of the session state.
type Snapshot struct {
	Mode        Mode
	SlideIndex  int
	Chapter     int
	Slide       int
	AutoAdvance bool
	Loading     bool
	ErrMsg      string
}

// Option configures an [Engine].
type Option func(*Engine)

// WithHooks sets the outbound notification hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithRuntimeRecord makes the engine persist the measured runtime of
// completed narrated runs to the given store under presentationID, together
// with the planned total the measurement was taken against.
func WithRuntimeRecord(store record.Store, presentationID string, plannedTotal float64) Option {
	return func(e *Engine) {
		e.recordStore = store
		e.presentationID = presentationID
		e.plannedTotal = plannedTotal
	}
}

// WithTimingDefaults layers the server-wide timing configuration under the
// deck's own timing, so operators can tune default delays without editing
// every manifest. Deck, slide and segment settings still win.
func WithTimingDefaults(cfg *timing.Config) Option {
	return func(e *Engine) { e.baseTiming = cfg }
}

// WithClock injects the clock used by the runtime stopwatch. Tests pass a
// fake; nil means [time.Now].
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.stopwatch = timing.NewStopwatch(now) }
}

// WithScheduler replaces the deferred-task scheduler. The default wraps
// [time.AfterFunc]; tests inject an immediate or manually driven scheduler.
// Cancellation is unnecessary: expired tasks from an older session
// generation are discarded by the loop.
func WithScheduler(after func(d time.Duration, fn func())) Option {
	return func(e *Engine) { e.after = after }
}

// loopMsg is a unit of deferred work posted back into the engine loop. The
// loop runs fn only when gen still matches the current session generation.
type loopMsg struct {
	gen uint64
	fn  func()
}

type startCmd struct {
	mode  Mode
	reply chan error
}

type navigateCmd struct {
	chapter int
	slide   int
}

type setAutoAdvanceCmd struct {
	enabled bool
}

type restartCmd struct{}

type snapshotCmd struct {
	reply chan Snapshot
}

// Engine drives playback for one presentation session.
type Engine struct {
	deck        *deck.Deck
	loader      audio.Loader
	broadcaster *segment.Broadcaster
	stopwatch   *timing.Stopwatch
	hooks       Hooks
	after       func(d time.Duration, fn func())

	recordStore    record.Store
	presentationID string
	plannedTotal   float64
	baseTiming     *timing.Config

	cmds chan any
	loop chan loopMsg
	done chan struct{}

	// Loop-owned state. Only the Run goroutine touches these.
	mode        Mode
	index       int
	gen         uint64
	handle      audio.Handle
	loading     bool
	autoAdvance bool
	fromMarker  int
	errMsg      string
	runCtx      context.Context
}

// New creates an Engine for the given deck. The engine does nothing until
// [Engine.Run] is called.
func New(d *deck.Deck, loader audio.Loader, opts ...Option) *Engine {
	e := &Engine{
		deck:        d,
		loader:      loader,
		broadcaster: segment.New(),
		stopwatch:   timing.NewStopwatch(nil),
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		cmds:       make(chan any),
		loop:       make(chan loopMsg, 16),
		done:       make(chan struct{}),
		fromMarker: noMarker,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Broadcaster returns the segment broadcaster owned by this engine. Readers
// subscribe to it; only the engine mutates it.
func (e *Engine) Broadcaster() *segment.Broadcaster {
	return e.broadcaster
}

// Stopwatch returns the runtime stopwatch, for elapsed-time display.
func (e *Engine) Stopwatch() *timing.Stopwatch {
	return e.stopwatch
}

// ─── public commands ─────────────────────────────────────────────────────────

// Start begins playback in the given mode. It returns [ErrNoSlides] if the
// deck is empty; in that case no transition happens and the error stays
// visible until a successful start. Starting while a segment load is in
// flight or while already running is a logged no-op.
func (e *Engine) Start(ctx context.Context, mode Mode) error {
	reply := make(chan error, 1)
	if err := e.send(ctx, startCmd{mode: mode, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return context.Canceled
	}
}

// Navigate moves to the slide with the given coordinates. Only meaningful in
// the manual modes; unknown coordinates are a logged no-op.
func (e *Engine) Navigate(ctx context.Context, chapter, slide int) error {
	return e.send(ctx, navigateCmd{chapter: chapter, slide: slide})
}

// SetAutoAdvance toggles automatic advancement after narration in
// manual-audio mode.
func (e *Engine) SetAutoAdvance(ctx context.Context, enabled bool) error {
	return e.send(ctx, setAutoAdvanceCmd{enabled: enabled})
}

// Restart aborts the session from any state and returns it to
// AwaitingStart: live audio stopped, pending timers invalidated, error and
// auto-advance flags cleared, slide index reset.
func (e *Engine) Restart(ctx context.Context) error {
	return e.send(ctx, restartCmd{})
}

// State returns a snapshot of the session.
func (e *Engine) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := e.send(ctx, snapshotCmd{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-e.done:
		return Snapshot{}, context.Canceled
	}
}

func (e *Engine) send(ctx context.Context, cmd any) error {
	select {
	case e.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return context.Canceled
	}
}

// ─── event loop ──────────────────────────────────────────────────────────────

// Run executes the engine loop until ctx is cancelled. It must be called
// exactly once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	e.runCtx = ctx

	for {
		select {
		case <-ctx.Done():
			e.stopHandle()
			return nil
		case cmd := <-e.cmds:
			e.dispatch(cmd)
		case msg := <-e.loop:
			if msg.gen != e.gen {
				slog.Debug("discarding stale deferred task",
					"taskGen", msg.gen, "gen", e.gen)
				continue
			}
			msg.fn()
		}
	}
}

func (e *Engine) dispatch(cmd any) {
	switch c := cmd.(type) {
	case startCmd:
		c.reply <- e.start(c.mode)
	case navigateCmd:
		e.navigate(c.chapter, c.slide, false)
	case setAutoAdvanceCmd:
		e.autoAdvance = c.enabled
		slog.Debug("auto-advance toggled", "enabled", c.enabled)
	case restartCmd:
		e.restart()
	case snapshotCmd:
		c.reply <- e.snapshot()
	default:
		slog.Warn("unknown engine command", "type", fmt.Sprintf("%T", cmd))
	}
}

// post delivers deferred work into the loop, giving up when the loop has
// exited.
func (e *Engine) post(gen uint64, fn func()) {
	select {
	case e.loop <- loopMsg{gen: gen, fn: fn}:
	case <-e.done:
	}
}

// schedule runs fn on the loop after d, unless the session generation has
// moved on by then.
func (e *Engine) schedule(d time.Duration, fn func()) {
	gen := e.gen
	e.after(d, func() { e.post(gen, fn) })
}

// resolveTiming merges the delay hierarchy for this engine: server-wide
// defaults, then the deck, then any slide or segment overrides.
func (e *Engine) resolveTiming(overrides ...*timing.Config) timing.Profile {
	configs := make([]*timing.Config, 0, 2+len(overrides))
	configs = append(configs, e.baseTiming, e.deck.Timing)
	configs = append(configs, overrides...)
	return timing.Resolve(configs...)
}

// ─── state transitions ───────────────────────────────────────────────────────

func (e *Engine) start(mode Mode) error {
	if e.loading {
		slog.Warn("start ignored, segment load in flight")
		return nil
	}
	if e.mode != ModeAwaitingStart {
		slog.Warn("start ignored, session already running", "mode", e.mode.String())
		return nil
	}
	if len(e.deck.Slides) == 0 {
		e.errMsg = "presentation has no slides"
		e.notifyError(e.errMsg, false)
		return ErrNoSlides
	}

	e.gen++
	e.errMsg = ""
	e.index = 0
	e.fromMarker = noMarker
	e.mode = mode
	slog.Info("playback starting", "mode", mode.String(), "slides", len(e.deck.Slides))
	if e.hooks.OnPlaybackStart != nil {
		e.hooks.OnPlaybackStart(mode)
	}

	switch mode {
	case ModeNarrated:
		e.stopwatch.Begin()
		profile := e.resolveTiming()
		e.schedule(profile.BeforeFirstSlide, func() { e.enterSlide(0) })
	case ModeManualSilent:
		e.notifySlide()
	case ModeManualAudio:
		e.notifySlide()
		e.playSlideAudio()
	default:
		e.mode = ModeAwaitingStart
		return fmt.Errorf("engine: cannot start in mode %s", mode)
	}
	return nil
}

func (e *Engine) restart() {
	slog.Info("session restarting", "mode", e.mode.String(), "slide", e.index)
	e.gen++
	e.stopHandle()
	e.stopwatch.Stop()
	e.mode = ModeAwaitingStart
	e.index = 0
	e.loading = false
	e.autoAdvance = false
	e.fromMarker = noMarker
	e.errMsg = ""
	e.broadcaster.Initialize("", nil)
}

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Mode:        e.mode,
		SlideIndex:  e.index,
		AutoAdvance: e.autoAdvance,
		Loading:     e.loading,
		ErrMsg:      e.errMsg,
	}
	if e.index >= 0 && e.index < len(e.deck.Slides) {
		snap.Chapter = e.deck.Slides[e.index].Chapter
		snap.Slide = e.deck.Slides[e.index].Number
	}
	return snap
}

// ─── narrated mode ───────────────────────────────────────────────────────────

// enterSlide makes slide i active in narrated mode and begins its narration,
// or finishes the run when i is past the last slide.
func (e *Engine) enterSlide(i int) {
	if i >= len(e.deck.Slides) {
		e.finish()
		return
	}
	e.index = i
	e.notifySlide()

	slide := &e.deck.Slides[i]
	if !slide.HasSegments() {
		slog.Warn("slide has no audio segments, advancing", "slide", slide.Key())
		e.broadcaster.Initialize(slide.Key(), nil)
		e.schedule(zeroSegmentGrace, func() { e.enterSlide(i + 1) })
		return
	}

	e.broadcaster.Initialize(slide.Key(), slide.Segments)
	e.playSegment(i, 0)
}

// playSegment loads and starts segment segIdx of slide slideIdx, wiring its
// terminal event to the next step of the narrated sequence.
func (e *Engine) playSegment(slideIdx, segIdx int) {
	slide := &e.deck.Slides[slideIdx]
	seg := &slide.Segments[segIdx]
	e.broadcaster.SetCurrent(segIdx)

	profile := e.resolveTiming(slide.Timing, seg.Timing)
	last := segIdx == len(slide.Segments)-1

	next := func() {
		if last {
			e.schedule(profile.BetweenSlides, func() { e.enterSlide(slideIdx + 1) })
		} else {
			e.schedule(profile.BetweenSegments, func() { e.playSegment(slideIdx, segIdx+1) })
		}
	}

	e.loadAndStart(seg,
		func() {
			slog.Debug("segment playing", "slide", slide.Key(), "segment", seg.ID)
		},
		func() {
			e.notifySegmentPlayed(slide.Key(), seg.ID)
			next()
		},
		func(err error) {
			e.surfaceSegmentError(slide.Key(), seg.ID, err)
			e.schedule(errorSkipDelay, func() {
				e.errMsg = ""
				next()
			})
		})
}

// finish completes a narrated run: freeze the stopwatch, persist the
// measured runtime, hold the closing frame, then return to AwaitingStart.
func (e *Engine) finish() {
	elapsed := e.stopwatch.Finalize()
	slog.Info("narrated run complete", "elapsedSec", elapsed)
	e.persistRuntime(elapsed)

	e.mode = ModeEnded
	e.stopHandle()
	if e.hooks.OnPlaybackEnd != nil {
		e.hooks.OnPlaybackEnd(elapsed)
	}

	profile := e.resolveTiming()
	e.schedule(profile.AfterFinalSlide, func() {
		e.mode = ModeAwaitingStart
		e.index = 0
		e.broadcaster.Initialize("", nil)
	})
}

// persistRuntime saves the measured runtime off-loop. A storage failure
// costs the display of actual runtime, nothing more, so it is only logged.
func (e *Engine) persistRuntime(elapsed float64) {
	if e.recordStore == nil {
		return
	}
	store, id, planned := e.recordStore, e.presentationID, e.plannedTotal
	ctx := e.runCtx
	go func() {
		rec := record.Record{Elapsed: elapsed, PlannedTotal: planned}
		if err := store.Save(ctx, id, rec); err != nil {
			slog.Error("failed to persist runtime record", "presentation", id, "error", err)
		}
	}()
}

// ─── manual modes ────────────────────────────────────────────────────────────

// navigate applies a navigation intent. External intents pass through the
// stale-navigation filter; internal auto-advance navigations bypass it.
func (e *Engine) navigate(chapter, slide int, internal bool) {
	if e.mode != ModeManualSilent && e.mode != ModeManualAudio {
		slog.Warn("navigation ignored outside manual mode", "mode", e.mode.String())
		return
	}

	i, ok := e.deck.FindSlide(chapter, slide)
	if !ok {
		slog.Warn("navigation to unknown slide ignored", "chapter", chapter, "slide", slide)
		return
	}

	if !internal && e.fromMarker != noMarker {
		marker := e.fromMarker
		e.fromMarker = noMarker
		if i == marker {
			// Echo of the slide we just auto-advanced from. Discarded once.
			slog.Debug("discarding stale navigation echo", "slideIndex", i)
			return
		}
	}

	if i == e.index {
		return
	}
	e.index = i
	e.notifySlide()

	if e.mode == ModeManualAudio {
		e.playSlideAudio()
	}
}

// playSlideAudio stops any current narration and plays the first segment of
// the active slide, chaining auto-advance when enabled.
func (e *Engine) playSlideAudio() {
	// Bumping the generation orphans any in-flight load; its completion
	// will be discarded, so the flag must be cleared here.
	e.gen++
	e.loading = false
	e.stopHandle()

	slide := &e.deck.Slides[e.index]
	e.broadcaster.Initialize(slide.Key(), slide.Segments)
	if !slide.HasSegments() {
		return
	}

	slideIdx := e.index
	seg := &slide.Segments[0]
	profile := e.resolveTiming(slide.Timing, seg.Timing)

	advance := func() {
		if !e.autoAdvance || slideIdx+1 >= len(e.deck.Slides) {
			return
		}
		e.schedule(profile.BetweenSlides, func() {
			if !e.autoAdvance || e.index != slideIdx {
				return
			}
			next := &e.deck.Slides[slideIdx+1]
			e.fromMarker = slideIdx
			e.navigate(next.Chapter, next.Number, true)
		})
	}

	e.loadAndStart(seg,
		func() {
			slog.Debug("manual narration playing", "slide", slide.Key(), "segment", seg.ID)
		},
		func() {
			e.notifySegmentPlayed(slide.Key(), seg.ID)
			advance()
		},
		func(err error) {
			e.surfaceSegmentError(slide.Key(), seg.ID, err)
			e.schedule(errorSkipDelay, func() {
				e.errMsg = ""
				advance()
			})
		})
}

// ─── audio plumbing ──────────────────────────────────────────────────────────

// loadAndStart resolves the segment's clip off-loop, then starts it and
// forwards its events back into the loop under the current generation.
func (e *Engine) loadAndStart(seg *deck.AudioSegment, onPlayable, onEnded func(), onErr func(error)) {
	gen := e.gen
	e.loading = true
	path, id := seg.Audio, seg.ID
	ctx := e.runCtx

	go func() {
		h := e.loader.Load(ctx, path, id)
		e.post(gen, func() {
			e.loading = false
			e.stopHandle()
			e.handle = h
			go e.pump(gen, h, onPlayable, onEnded, onErr)
			h.Start()
		})
	}()
}

// pump forwards one handle's events into the loop until its stream closes.
func (e *Engine) pump(gen uint64, h audio.Handle, onPlayable, onEnded func(), onErr func(error)) {
	for ev := range h.Events() {
		switch ev.Type {
		case audio.EventPlayable:
			e.post(gen, onPlayable)
		case audio.EventEnded:
			e.post(gen, onEnded)
		case audio.EventError:
			err := ev.Err
			e.post(gen, func() { onErr(err) })
		}
	}
}

func (e *Engine) stopHandle() {
	if e.handle != nil {
		e.handle.Stop()
		e.handle = nil
	}
}

func (e *Engine) surfaceSegmentError(slideKey, segmentID string, err error) {
	e.errMsg = fmt.Sprintf("narration failed for segment %s", segmentID)
	slog.Error("segment playback failed",
		"slide", slideKey, "segment", segmentID, "error", err)
	e.notifyError(e.errMsg, true)
}

func (e *Engine) notifyError(msg string, transient bool) {
	if e.hooks.OnError != nil {
		e.hooks.OnError(msg, transient)
	}
}

func (e *Engine) notifySegmentPlayed(slideKey, segmentID string) {
	if e.hooks.OnSegmentPlayed != nil {
		e.hooks.OnSegmentPlayed(slideKey, segmentID)
	}
}

func (e *Engine) notifySlide() {
	s := &e.deck.Slides[e.index]
	if e.hooks.OnSlideChange != nil {
		e.hooks.OnSlideChange(s.Chapter, s.Number)
	}
}
