// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/shared"
)

// RecordingEmitter captures outbound commands. Set Err to make Emit fail.
type RecordingEmitter struct {
	Commands []models.Command
	Err      error
}

func (e *RecordingEmitter) Emit(cmd models.Command) error {
	if e.Err != nil {
		return e.Err
	}
	e.Commands = append(e.Commands, cmd)
	return nil
}

// Types returns the type of every captured command in order.
func (e *RecordingEmitter) Types() []string {
	types := make([]string, 0, len(e.Commands))
	for _, c := range e.Commands {
		types = append(types, c.Type)
	}
	return types
}

// ManualClock is a clock that only moves when told to.
type ManualClock struct {
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time          { return c.now }
func (c *ManualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// ManualScheduler records periodic callbacks and runs them on [ManualScheduler.Fire].
type ManualScheduler struct {
	next   int
	active map[int]func()
	Starts int
	Stops  int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{active: make(map[int]func())}
}

// Every registers fn. The returned stop func is idempotent.
func (s *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	id := s.next
	s.next++
	s.active[id] = fn
	s.Starts++

	return func() {
		if _, ok := s.active[id]; ok {
			delete(s.active, id)
			s.Stops++
		}
	}
}

// Fire runs every active callback once.
func (s *ManualScheduler) Fire() {
	for id := 0; id < s.next; id++ {
		if fn, ok := s.active[id]; ok {
			fn()
		}
	}
}

// Active returns the number of running schedules.
func (s *ManualScheduler) Active() int { return len(s.active) }

// RecordingIndicator captures countdown updates.
type RecordingIndicator struct {
	Shows   []int
	Hides   int
	Visible bool
}

func (i *RecordingIndicator) Show(remaining int) {
	i.Shows = append(i.Shows, remaining)
	i.Visible = true
}

func (i *RecordingIndicator) Hide() {
	i.Hides++
	i.Visible = false
}

// RecordingRecorder captures persisted enrollments. Set Err to make Record fail.
type RecordingRecorder struct {
	mu      sync.Mutex
	Records []*models.Enrollment
	Err     error
}

func (r *RecordingRecorder) Record(e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Records = append(r.Records, e)
	return nil
}

// Outcomes returns the outcome of every record in order.
func (r *RecordingRecorder) Outcomes() []models.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Outcome, 0, len(r.Records))
	for _, e := range r.Records {
		out = append(out, e.Outcome())
	}
	return out
}

// MockService serves canned device state and assets. Assets are keyed by request path.
type MockService struct {
	State  *models.PlaybackState
	Assets map[string][]byte
	Err    error
}

func (m *MockService) FetchState(ctx context.Context) (*models.PlaybackState, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.State == nil {
		return nil, shared.ErrNoTrack
	}
	return m.State, nil
}

func (m *MockService) FetchAsset(ctx context.Context, path string) ([]byte, error) {
	if data, ok := m.Assets[path]; ok {
		return data, nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("%w: GET %s returned 404", shared.ErrAPIRequest, path)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
