package clip_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/narradeck/narradeck/pkg/audio"
	"github.com/narradeck/narradeck/pkg/audio/clip"
)

// writeWAV writes a silent mono 16-bit PCM WAV file with the given number of
// samples at the given rate.
func writeWAV(t *testing.T, path string, sampleRate, numSamples int) {
	t.Helper()

	dataSize := numSamples * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating clip dir: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing wav: %v", err)
	}
}

func TestLoader_ProbesClipDuration(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, filepath.Join(root, "c0", "intro.wav"), 8000, 8000) // 1s

	l := clip.NewLoader(clip.Config{Root: root})
	h := l.Load(context.Background(), "c0/intro.wav", "intro")

	if got := h.Duration(); got != time.Second {
		t.Errorf("Duration: got %v, want 1s", got)
	}
}

func TestLoader_MissingAssetFallsBack(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, filepath.Join(root, "silence.wav"), 8000, 4000) // 0.5s

	var fellBack []string
	l := clip.NewLoader(clip.Config{
		Root:         root,
		FallbackClip: "silence.wav",
		OnFallback:   func(segID string) { fellBack = append(fellBack, segID) },
	})

	h := l.Load(context.Background(), "c0/missing.wav", "intro")

	// The fallback clip's measured duration is used, and the substitution
	// is reported.
	if got := h.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration: got %v, want 500ms", got)
	}
	if len(fellBack) != 1 || fellBack[0] != "intro" {
		t.Errorf("OnFallback calls: got %v, want [intro]", fellBack)
	}
}

func TestLoader_UnsupportedFormatFallsBack(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "weird.ogg"), []byte("OggS"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	calls := 0
	l := clip.NewLoader(clip.Config{
		Root:       root,
		OnFallback: func(string) { calls++ },
	})

	h := l.Load(context.Background(), "weird.ogg", "seg")
	if calls != 1 {
		t.Errorf("OnFallback calls: got %d, want 1", calls)
	}
	// No configured fallback clip: the fixed silence duration applies.
	if got := h.Duration(); got != time.Second {
		t.Errorf("Duration: got %v, want 1s", got)
	}
}

func TestLoader_UnreadableFallbackClip(t *testing.T) {
	// Construction must not fail even when the fallback itself is bad.
	l := clip.NewLoader(clip.Config{Root: t.TempDir(), FallbackClip: "nope.wav"})

	h := l.Load(context.Background(), "also-missing.wav", "seg")
	if got := h.Duration(); got != time.Second {
		t.Errorf("Duration: got %v, want fixed 1s silence", got)
	}
}

func TestHandle_Lifecycle(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, filepath.Join(root, "tiny.wav"), 8000, 80) // 10ms

	l := clip.NewLoader(clip.Config{Root: root})
	h := l.Load(context.Background(), "tiny.wav", "seg")
	h.Start()

	var got []audio.EventType
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				if len(got) != 2 || got[0] != audio.EventPlayable || got[1] != audio.EventEnded {
					t.Fatalf("event sequence: got %v, want [PLAYABLE ENDED]", got)
				}
				return
			}
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("timed out waiting for events, have %v", got)
		}
	}
}

func TestHandle_StopSuppressesEnded(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, filepath.Join(root, "long.wav"), 8000, 80000) // 10s

	l := clip.NewLoader(clip.Config{Root: root})
	h := l.Load(context.Background(), "long.wav", "seg")
	h.Start()

	if ev := <-h.Events(); ev.Type != audio.EventPlayable {
		t.Fatalf("first event: got %v, want PLAYABLE", ev.Type)
	}

	h.Stop()
	if ev, ok := <-h.Events(); ok {
		t.Errorf("stopped handle emitted %v, want closed stream", ev.Type)
	}

	// Stop twice is harmless.
	h.Stop()
}
