// Package feedback records like, dislike and report actions: once per
// session per location, counted locally at once, and forwarded to a form
// endpoint without waiting for it.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

// ErrUnknownAction is returned for actions other than like, dislike and report.
var ErrUnknownAction = errors.New("unknown feedback action")

// ErrUnknownLocation is returned when the location id is not in the store.
var ErrUnknownLocation = errors.New("unknown location")

// Key is the guard key for one action on one location.
func Key(id int, action model.Action) string {
	return fmt.Sprintf("%d-%s", id, action)
}

// Guard remembers which actions a session has already sent.
type Guard struct {
	mu   sync.Mutex
	keys map[string]bool
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{keys: make(map[string]bool)}
}

// Sent reports whether action was already sent for id.
func (g *Guard) Sent(id int, action model.Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[Key(id, action)]
}

// mark records action for id and reports whether it was new.
func (g *Guard) mark(id int, action model.Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := Key(id, action)
	if g.keys[k] {
		return false
	}
	g.keys[k] = true
	return true
}

func (g *Guard) unmark(id int, action model.Action) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, Key(id, action))
}

// Keys returns the recorded guard keys.
func (g *Guard) Keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.keys))
	for k := range g.keys {
		out = append(out, k)
	}
	return out
}

// Submitter posts feedback as a url-encoded form.
type Submitter struct {
	Endpoint string
	// Columns maps the logical fields "id" and "action" to form field names.
	Columns map[string]string
	HTTP    *http.Client
	Timeout time.Duration
	Logger  *slog.Logger

	wg sync.WaitGroup
}

// NewSubmitter returns a Submitter for endpoint. An empty endpoint disables
// forwarding.
func NewSubmitter(endpoint string, columns map[string]string, timeout time.Duration, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Submitter{
		Endpoint: endpoint,
		Columns:  columns,
		HTTP:     &http.Client{Timeout: timeout},
		Timeout:  timeout,
		Logger:   logger,
	}
}

func (s *Submitter) column(name string) string {
	if c := s.Columns[name]; c != "" {
		return c
	}
	return name
}

// Form returns the form body for one submission.
func (s *Submitter) Form(id int, action model.Action) url.Values {
	v := url.Values{}
	v.Set(s.column("id"), strconv.Itoa(id))
	v.Set(s.column("action"), string(action))
	return v
}

// Send posts one submission and waits for the transport to finish. The
// response body and status are not inspected.
func (s *Submitter) Send(ctx context.Context, id int, action model.Action) error {
	if s.Endpoint == "" {
		s.Logger.Debug("feedback endpoint not configured, not forwarding", "id", id, "action", action)
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.Endpoint, strings.NewReader(s.Form(id, action).Encode()))
	if err != nil {
		return fmt.Errorf("creating feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("posting feedback: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	s.Logger.Debug("feedback sent", "id", id, "action", action)
	return nil
}

// SendAsync posts in the background. onErr, when non-nil, is called if the
// transport fails.
func (s *Submitter) SendAsync(id int, action model.Action, onErr func(error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Send(ctx, id, action); err != nil {
			s.Logger.Warn("feedback submission failed", "id", id, "action", action, "err", err)
			if onErr != nil {
				onErr(err)
			}
		}
	}()
}

// Wait blocks until background submissions have finished.
func (s *Submitter) Wait() {
	s.wg.Wait()
}

// Status levels for Outcome and notifications.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Outcome is the immediate result of a submission.
type Outcome struct {
	Accepted bool           `json:"accepted"`
	Location model.Location `json:"location"`
	Level    string         `json:"level"`
	Message  string         `json:"message"`
}

// Notify receives status messages produced after Submit has returned.
type Notify func(level, msg string)

// Submit records action for id. The guard is marked before the stored
// counter changes, so a repeat within the session is refused even when
// requests race. The action is forwarded in the background. Local changes are never undone if forwarding fails.
func Submit(g *Guard, st *store.LocationStore, sub *Submitter, id int, action model.Action, notify Notify) (Outcome, error) {
	if !action.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !g.mark(id, action) {
		loc, _ := st.Get(id)
		return Outcome{
			Location: loc,
			Level:    LevelWarning,
			Message:  fmt.Sprintf("Already submitted feedback for %s on ID %d.", action, id),
		}, nil
	}

	loc, ok := st.Increment(id, action)
	if !ok {
		g.unmark(id, action)
		return Outcome{}, fmt.Errorf("%w: %d", ErrUnknownLocation, id)
	}

	if sub != nil {
		sub.SendAsync(id, action, func(error) {
			if notify != nil {
				notify(LevelError, "Failed to submit feedback.")
			}
		})
	}

	return Outcome{
		Accepted: true,
		Location: loc,
		Level:    LevelInfo,
		Message:  fmt.Sprintf("Submitted feedback: %s for ID %d.", action, id),
	}, nil
}
