package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGeneratePublishesEveryFourTokens(t *testing.T) {
	f := newFixture(t, &fakeLoader{model: &fakeModel{pieces: letters(10)}}, nil)
	sess, err := f.ev.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []string{"", "abcd", "abcdefgh", "abcdefghij"}
	got := outputs(f.pub)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("outputs = %q, want %q", got, want)
	}
	if sess.Output != "abcdefghij" || sess.Tokens != 10 || sess.Running {
		t.Fatalf("session = %+v", sess)
	}
	snap := f.ev.Snapshot()
	if !strings.HasPrefix(snap.Stat, "Tokens/second: ") || snap.Running {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Session.Output != "abcdefghij" {
		t.Fatalf("output = %q", snap.Session.Output)
	}
}

func TestGenerateSkipsCorrectionWhenAligned(t *testing.T) {
	f := newFixture(t, &fakeLoader{model: &fakeModel{pieces: letters(8)}}, nil)
	if _, err := f.ev.Generate(context.Background(), "hi"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := outputs(f.pub); len(got) != 3 || got[2] != "abcdefgh" {
		t.Fatalf("outputs = %q", got)
	}
}

func TestGenerateStopsAtMaxTokens(t *testing.T) {
	l := &fakeLoader{model: &fakeModel{pieces: letters(20)}}
	f := newFixture(t, l, func(c *Config) { c.MaxTokens = 6 })
	sess, err := f.ev.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sess.Tokens != 6 || sess.Output != "abcdef" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestGenerateCustomCadence(t *testing.T) {
	f := newFixture(t, &fakeLoader{model: &fakeModel{pieces: letters(4)}}, func(c *Config) { c.DisplayCadence = 2 })
	if _, err := f.ev.Generate(context.Background(), "hi"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := strings.Join(outputs(f.pub), "|"); got != "|ab|abcd" {
		t.Fatalf("outputs = %q", got)
	}
}

func TestGenerateWhileRunningIsDropped(t *testing.T) {
	m := &fakeModel{pieces: letters(5), started: make(chan struct{}), gate: make(chan struct{})}
	f := newFixture(t, &fakeLoader{model: m}, func(c *Config) { c.DisplayCadence = 1 })
	before := testutil.ToFloat64(generationsTotal.WithLabelValues("dropped"))

	done := make(chan error, 1)
	go func() {
		_, err := f.ev.Generate(context.Background(), "first")
		done <- err
	}()
	waitFor(t, m.started)

	if !f.ev.Running() {
		t.Fatalf("expected running")
	}
	out := f.ev.Output()
	if _, err := f.ev.Generate(context.Background(), "second"); !errors.Is(err, ErrGenerationRunning) {
		t.Fatalf("want ErrGenerationRunning, got %v", err)
	}
	if f.ev.Output() != out {
		t.Fatalf("dropped call touched output")
	}
	if err := f.ev.Select("b"); !errors.Is(err, ErrGenerationRunning) {
		t.Fatalf("Select while running: %v", err)
	}
	close(m.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if got := len(m.Seeds()); got != 1 {
		t.Fatalf("model streamed %d times, want 1", got)
	}
	if d := testutil.ToFloat64(generationsTotal.WithLabelValues("dropped")) - before; d != 1 {
		t.Fatalf("dropped counter delta = %v", d)
	}
	if f.ev.Output() != "abcde" {
		t.Fatalf("output = %q", f.ev.Output())
	}
}

func TestGenerateClearsPreviousOutput(t *testing.T) {
	m := &fakeModel{pieces: letters(8)}
	f := newFixture(t, &fakeLoader{model: m}, nil)
	if _, err := f.ev.Generate(context.Background(), "one"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	m.started = make(chan struct{})
	m.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.ev.Generate(context.Background(), "two")
		done <- err
	}()
	waitFor(t, m.started)
	if got := f.ev.Output(); got != "" {
		t.Fatalf("output during second run = %q, want cleared", got)
	}
	if f.ev.Snapshot().Stat != "" {
		t.Fatalf("stat not cleared")
	}
	close(m.gate)
	if err := <-done; err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerateSeedsFromClock(t *testing.T) {
	m := &fakeModel{pieces: letters(2)}
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	f := newFixture(t, &fakeLoader{model: m}, func(c *Config) {
		c.Now = func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		}
	})
	a, err := f.ev.Generate(context.Background(), "same")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := f.ev.Generate(context.Background(), "same")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Seed == b.Seed {
		t.Fatalf("seed did not change: %d", a.Seed)
	}
	seeds := m.Seeds()
	if seeds[0] != a.Seed || seeds[1] != b.Seed {
		t.Fatalf("model saw seeds %v, sessions %d %d", seeds, a.Seed, b.Seed)
	}
	if a.ID == b.ID {
		t.Fatalf("session ids must differ")
	}
}

func TestGenerateTemperature(t *testing.T) {
	zero := 0.0
	cases := []struct {
		name string
		temp *float64
		want float32
	}{
		{"default", nil, defaultTemperature},
		{"greedy", &zero, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &fakeModel{pieces: letters(1)}
			f := newFixture(t, &fakeLoader{model: m}, func(c *Config) { c.Temperature = tc.temp })
			if _, err := f.ev.Generate(context.Background(), "hi"); err != nil {
				t.Fatalf("Generate: %v", err)
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			if len(m.temps) != 1 || m.temps[0] != tc.want {
				t.Fatalf("model saw temperatures %v, want %v", m.temps, tc.want)
			}
		})
	}
}

func TestGenerateLoadFailure(t *testing.T) {
	f := newFixture(t, &fakeLoader{err: errBoom}, nil)
	sess, err := f.ev.Generate(context.Background(), "hi")
	if !errors.Is(err, errBoom) {
		t.Fatalf("want boom, got %v", err)
	}
	if sess.Output != "Failed: boom" || sess.Err != "boom" {
		t.Fatalf("session = %+v", sess)
	}
	if f.ev.Running() {
		t.Fatalf("running flag not cleared")
	}
	if len(f.pub.Named(EventGenerateFailed)) != 1 {
		t.Fatalf("expected %s event", EventGenerateFailed)
	}
}

func TestGenerateStreamFailure(t *testing.T) {
	f := newFixture(t, &fakeLoader{model: &fakeModel{pieces: letters(3), err: errBoom}}, nil)
	if _, err := f.ev.Generate(context.Background(), "hi"); !errors.Is(err, errBoom) {
		t.Fatalf("want boom, got %v", err)
	}
	if got := f.ev.Output(); got != "Failed: boom" {
		t.Fatalf("output = %q", got)
	}
	// A later call runs normally.
	f.loader.model.(*fakeModel).err = nil
	if _, err := f.ev.Generate(context.Background(), "hi"); err != nil {
		t.Fatalf("Generate after failure: %v", err)
	}
}

func TestGenerateEmptyPromptFails(t *testing.T) {
	f := newFixture(t, &fakeLoader{}, nil)
	if _, err := f.ev.Generate(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank prompt")
	}
	if !strings.HasPrefix(f.ev.Output(), "Failed: ") {
		t.Fatalf("output = %q", f.ev.Output())
	}
}

func TestGenerateAppliesChatTemplate(t *testing.T) {
	m := &fakeModel{pieces: letters(1)}
	f := newFixture(t, &fakeLoader{model: m}, nil)
	if err := f.ev.Select("b"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := f.ev.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(m.texts[0], "<|im_start|>user\nhello") {
		t.Fatalf("prompt text = %q", m.texts[0])
	}
}

func TestSeedFromIsNonNegative(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 1 << 62, -(1 << 62)} {
		if s := seedFrom(n); s < 0 {
			t.Fatalf("seedFrom(%d) = %d", n, s)
		}
	}
}

func TestGenerateOnOutputMatchesEvents(t *testing.T) {
	f := newFixture(t, &fakeLoader{model: &fakeModel{pieces: letters(6)}}, nil)
	var seen []string
	if _, err := f.ev.Generate(context.Background(), "hi", OnOutput(func(s string) { seen = append(seen, s) })); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Join(seen, "|") != strings.Join(outputs(f.pub), "|") {
		t.Fatalf("observer %q, events %q", seen, outputs(f.pub))
	}
	if seen[len(seen)-1] != "abcdef" {
		t.Fatalf("last update = %q", seen[len(seen)-1])
	}
}
