package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is an in-memory Backend for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	histograms []histCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("jobA", "load", nil, 2*time.Second)
	RecordStep("jobB", "write_store", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls: counters=%d histograms=%d, want 2/2", len(fb.counters), len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != StepTotal || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["job"] != "jobA" || c0.labels["step"] != "load" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}
	if h := fb.histograms[0]; h.name != StepDurationSeconds || h.value < 1.999 || h.value > 2.001 {
		t.Fatalf("hist[0] = %#v", h)
	}

	if got := fb.counters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1] status = %q, want failure", got)
	}
	if h := fb.histograms[1]; h.value < 1.499 || h.value > 1.501 {
		t.Fatalf("hist[1].value = %v, want ~1.5", h.value)
	}
}

func TestRecordRowsAndRejected(t *testing.T) {
	fb := install(t)

	RecordRows("job", "read", 4)
	RecordRows("job", "read", 0) // ignored
	RecordRejected("job", "email", 1)
	RecordRejected("job", "age", -1) // ignored

	if len(fb.counters) != 2 {
		t.Fatalf("counter calls = %d, want 2: %#v", len(fb.counters), fb.counters)
	}
	if c := fb.counters[0]; c.name != RecordsTotal || c.delta != 4 || c.labels["kind"] != "read" {
		t.Fatalf("counter[0] = %#v", c)
	}
	if c := fb.counters[1]; c.name != RejectedTotal || c.delta != 1 || c.labels["stage"] != "email" {
		t.Fatalf("counter[1] = %#v", c)
	}
}

func TestSetBackendNilKeepsCurrent(t *testing.T) {
	fb := install(t)

	SetBackend(nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}
}

func TestNopBackendIsSafe(t *testing.T) {
	var b Backend = nopBackend{}
	b.IncCounter(StepTotal, 1, nil)
	b.ObserveHistogram(StepDurationSeconds, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
