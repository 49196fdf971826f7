package server

import "github.com/narradeck/narradeck/internal/segment"

// Event is one outbound WebSocket message to the browser shell.
//
// Types:
//
//	"started"  playback left the start screen; Mode is set
//	"slide"    the active slide changed; Chapter and Slide are set
//	"segment"  the segment position changed; Segment is set
//	"elapsed"  periodic runtime sample during narrated playback
//	"ended"    a narrated run completed; Elapsed is the measured runtime
//	"error"    a playback error; Message and Transient are set
type Event struct {
	Type string `json:"type"`

	Mode    string `json:"mode,omitempty"`
	Chapter int    `json:"chapter,omitempty"`
	Slide   int    `json:"slide,omitempty"`

	Segment *segment.State `json:"segment,omitempty"`

	Elapsed float64 `json:"elapsed,omitempty"`

	Message   string `json:"message,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

// Intent is one inbound WebSocket message from the browser shell.
//
// Types:
//
//	"start"       begin playback; Mode is "narrated", "manual" or "manual-audio"
//	"navigate"    move to the slide at Chapter/Slide (manual modes)
//	"autoAdvance" toggle auto-advance; Enabled is set (manual-audio mode)
//	"restart"     abort the session back to the start screen
type Intent struct {
	Type    string `json:"type"`
	Mode    string `json:"mode,omitempty"`
	Chapter int    `json:"chapter"`
	Slide   int    `json:"slide"`
	Enabled bool   `json:"enabled"`
}

// PresentationSummary is one entry of the presentation list response.
type PresentationSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Author       string  `json:"author,omitempty"`
	SlideCount   int     `json:"slideCount"`
	SegmentCount int     `json:"segmentCount"`
	PlannedTotal float64 `json:"plannedTotal"`

	// MeasuredRuntime is the persisted runtime of the last completed
	// narrated run, in seconds. Nil when no valid record exists.
	MeasuredRuntime *float64 `json:"measuredRuntime,omitempty"`
}
