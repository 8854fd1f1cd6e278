package datadog

import (
	"reflect"
	"sync"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"

	"sqlview/internal/metrics"
)

// recordingClient embeds the no-op client and records Count/Histogram calls.
type recordingClient struct {
	statsd.NoOpClient

	mu     sync.Mutex
	counts []string
	hists  []string
	tags   [][]string
	closed bool
}

func (r *recordingClient) Count(name string, value int64, tags []string, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, name)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingClient) Histogram(name string, value float64, tags []string, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists = append(r.hists, name)
	return nil
}

func (r *recordingClient) Close() error {
	r.closed = true
	return nil
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend(empty Addr) error = nil, want non-nil")
	}

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "sqlview.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	// UDP is fire-and-forget; these must not block or panic without an agent.
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "query"})
	b.ObserveHistogram(metrics.StepDuration, 0.1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestBackendRoutesToClient(t *testing.T) {
	t.Parallel()

	rc := &recordingClient{}
	b := &Backend{client: rc}

	b.IncCounter(metrics.DropsTotal, 1, metrics.Labels{"status": "success", "kind": "VIEW"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "collect"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if !reflect.DeepEqual(rc.counts, []string{metrics.DropsTotal}) {
		t.Errorf("counts = %v", rc.counts)
	}
	if !reflect.DeepEqual(rc.hists, []string{metrics.StepDuration}) {
		t.Errorf("hists = %v", rc.hists)
	}
	if want := []string{"kind:VIEW", "status:success"}; !reflect.DeepEqual(rc.tags[0], want) {
		t.Errorf("tags = %v, want %v", rc.tags[0], want)
	}
	if !rc.closed {
		t.Errorf("Flush did not close the client")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Errorf("labelsToTags(nil) = %v, want nil", got)
	}
	got := labelsToTags(metrics.Labels{"b": "2", "a": "1"})
	if want := []string{"a:1", "b:2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("labelsToTags = %v, want %v", got, want)
	}
}
