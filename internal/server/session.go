package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/narradeck/narradeck/internal/engine"
	"github.com/narradeck/narradeck/internal/observe"
)

// elapsedInterval is how often the measured runtime is pushed to the client
// during narrated playback.
const elapsedInterval = 1 * time.Second

// handleSession upgrades the connection and runs one playback session over
// it. Each connection gets its own engine and broadcaster; closing the
// socket tears the whole session down.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, report, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "presentation not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "presentation", id, "error", err)
		return
	}

	ctx, span := observe.SessionSpan(r.Context(), id)
	defer span.End()

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)

	sess := &session{
		server:       s,
		conn:         conn,
		presentation: id,
		out:          make(chan Event, 32),
	}

	var opts []engine.Option
	opts = append(opts, engine.WithHooks(sess.hooks()))
	if s.store != nil {
		opts = append(opts, engine.WithRuntimeRecord(s.store, id, report.Total))
	}
	if s.timingDefaults != nil {
		if base := s.timingDefaults(); base != nil {
			opts = append(opts, engine.WithTimingDefaults(base))
		}
	}
	sess.engine = engine.New(d, s.loader, opts...)

	slog.Info("playback session opened", "presentation", id)
	if err := sess.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Info("playback session closed", "presentation", id, "reason", err)
	} else {
		slog.Info("playback session closed", "presentation", id)
	}
	conn.Close(websocket.StatusNormalClosure, "session ended")
}

// session binds one WebSocket connection to one playback engine.
type session struct {
	server       *Server
	conn         *websocket.Conn
	presentation string
	engine       *engine.Engine

	// mode is the wire name of the last started playback mode, recorded
	// for metric attributes. Only hooks touch it, and hooks all run on the
	// engine loop goroutine.
	mode string

	// out is the single outbound event stream; every pump and hook writes
	// here and only writePump touches the socket.
	out chan Event
}

// hooks adapts engine notifications into outbound events and metrics.
// Hooks run on the engine loop, so they enqueue without blocking.
func (sess *session) hooks() engine.Hooks {
	m := sess.server.metrics
	return engine.Hooks{
		OnSlideChange: func(chapter, slide int) {
			m.RecordSlideAdvanced(context.Background(), sess.presentation, sess.mode)
			sess.enqueue(Event{Type: "slide", Chapter: chapter, Slide: slide})
		},
		OnPlaybackStart: func(mode engine.Mode) {
			sess.mode = mode.String()
			sess.enqueue(Event{Type: "started", Mode: sess.mode})
		},
		OnPlaybackEnd: func(elapsed float64) {
			m.RunsCompleted.Add(context.Background(), 1)
			sess.enqueue(Event{Type: "ended", Elapsed: elapsed})
		},
		OnSegmentPlayed: func(slideKey, segmentID string) {
			m.RecordSegmentPlayed(context.Background(), sess.presentation, sess.mode)
		},
		OnError: func(msg string, transient bool) {
			if transient {
				m.RecordSegmentError(context.Background(), sess.presentation)
			}
			sess.enqueue(Event{Type: "error", Message: msg, Transient: transient})
		},
	}
}

// enqueue adds an event to the outbound stream, dropping it when the client
// cannot keep up. State events are snapshots; a dropped one is superseded by
// the next.
func (sess *session) enqueue(ev Event) {
	select {
	case sess.out <- ev:
	default:
		slog.Warn("dropping outbound event, client too slow",
			"presentation", sess.presentation, "type", ev.Type)
	}
}

// run drives the session until the connection closes or ctx ends.
func (sess *session) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sess.engine.Run(ctx) })
	g.Go(func() error { return sess.readPump(ctx) })
	g.Go(func() error { return sess.writePump(ctx) })
	g.Go(func() error { return sess.forwardSegments(ctx) })
	g.Go(func() error { return sess.forwardElapsed(ctx) })

	return g.Wait()
}

// readPump decodes client intents and applies them to the engine. A closed
// or failed socket ends the session.
func (sess *session) readPump(ctx context.Context) error {
	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			return err
		}

		var intent Intent
		if err := json.Unmarshal(data, &intent); err != nil {
			slog.Warn("discarding malformed intent",
				"presentation", sess.presentation, "error", err)
			continue
		}
		sess.apply(ctx, intent)
	}
}

func (sess *session) apply(ctx context.Context, intent Intent) {
	switch intent.Type {
	case "start":
		mode, err := engine.ParseMode(intent.Mode)
		if err != nil {
			sess.enqueue(Event{Type: "error", Message: "unknown playback mode", Transient: true})
			return
		}
		if err := sess.engine.Start(ctx, mode); err != nil {
			if errors.Is(err, engine.ErrNoSlides) {
				sess.enqueue(Event{Type: "error", Message: "presentation has no slides", Transient: false})
				return
			}
			slog.Warn("start failed", "presentation", sess.presentation, "error", err)
		}
	case "navigate":
		_ = sess.engine.Navigate(ctx, intent.Chapter, intent.Slide)
	case "autoAdvance":
		_ = sess.engine.SetAutoAdvance(ctx, intent.Enabled)
	case "restart":
		_ = sess.engine.Restart(ctx)
	default:
		slog.Warn("discarding unknown intent",
			"presentation", sess.presentation, "type", intent.Type)
	}
}

// writePump is the only goroutine that writes to the socket.
func (sess *session) writePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sess.out:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("failed to marshal event", "type", ev.Type, "error", err)
				continue
			}
			if err := sess.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return err
			}
		}
	}
}

// forwardSegments relays broadcaster snapshots to the client.
func (sess *session) forwardSegments(ctx context.Context) error {
	id, ch := sess.engine.Broadcaster().Subscribe()
	defer sess.engine.Broadcaster().Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-ch:
			if !ok {
				return nil
			}
			stCopy := st
			sess.enqueue(Event{Type: "segment", Segment: &stCopy})
		}
	}
}

// forwardElapsed relays runtime samples while the stopwatch runs.
func (sess *session) forwardElapsed(ctx context.Context) error {
	ch := sess.engine.Stopwatch().Watch(ctx, elapsedInterval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case elapsed, ok := <-ch:
			if !ok {
				return nil
			}
			sess.enqueue(Event{Type: "elapsed", Elapsed: elapsed.Seconds()})
		}
	}
}
