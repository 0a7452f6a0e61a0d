package feedback

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/store"
)

func testStore() *store.LocationStore {
	st := store.NewLocationStore()
	st.Replace([]model.Location{{ID: 7, Name: "Apple", Likes: 2}})
	return st
}

type recorder struct {
	mu    sync.Mutex
	forms []map[string]string
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	req.ParseForm()
	r.mu.Lock()
	defer r.mu.Unlock()
	f := map[string]string{}
	for k := range req.PostForm {
		f[k] = req.PostForm.Get(k)
	}
	r.forms = append(r.forms, f)
}

func TestSubmitOncePerSession(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	st := testStore()
	g := NewGuard()
	sub := NewSubmitter(srv.URL, nil, time.Second, nil)

	out, err := Submit(g, st, sub, 7, model.ActionLike, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted || out.Location.Likes != 3 {
		t.Errorf("first submit: %+v", out)
	}
	if out.Message != "Submitted feedback: like for ID 7." {
		t.Errorf("message: %q", out.Message)
	}

	out, err = Submit(g, st, sub, 7, model.ActionLike, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Accepted || out.Level != LevelWarning {
		t.Errorf("repeat should be refused: %+v", out)
	}
	if loc, _ := st.Get(7); loc.Likes != 3 {
		t.Errorf("repeat changed likes to %d", loc.Likes)
	}

	sub.Wait()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.forms) != 1 {
		t.Fatalf("expected 1 POST, got %d", len(rec.forms))
	}
	if rec.forms[0]["id"] != "7" || rec.forms[0]["action"] != "like" {
		t.Errorf("form: %v", rec.forms[0])
	}
}

func TestConcurrentSubmitCountsOnce(t *testing.T) {
	st := testStore()
	g := NewGuard()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := Submit(g, st, nil, 7, model.ActionLike, nil)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if out.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("expected 1 accepted submit, got %d", accepted)
	}
	if loc, _ := st.Get(7); loc.Likes != 3 {
		t.Errorf("expected likes 3, got %d", loc.Likes)
	}
}

func TestReportDoesNotCount(t *testing.T) {
	st := testStore()
	g := NewGuard()
	out, err := Submit(g, st, nil, 7, model.ActionReport, nil)
	if err != nil || !out.Accepted {
		t.Fatalf("report: %+v, %v", out, err)
	}
	if out.Location.Likes != 2 || out.Location.Dislikes != 0 {
		t.Errorf("report changed counters: %+v", out.Location)
	}
	if !g.Sent(7, model.ActionReport) || g.Sent(7, model.ActionLike) {
		t.Errorf("guard keys: %v", g.Keys())
	}
}

func TestSubmitNetworkFailureKeepsLocalState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	st := testStore()
	g := NewGuard()
	sub := NewSubmitter(url, nil, time.Second, nil)

	var mu sync.Mutex
	var notes []string
	notify := func(level, msg string) {
		mu.Lock()
		defer mu.Unlock()
		notes = append(notes, level+": "+msg)
	}

	out, err := Submit(g, st, sub, 7, model.ActionDislike, notify)
	if err != nil || !out.Accepted {
		t.Fatalf("submit: %+v, %v", out, err)
	}
	sub.Wait()

	if loc, _ := st.Get(7); loc.Dislikes != 1 {
		t.Errorf("optimistic increment rolled back: %+v", loc)
	}
	if !g.Sent(7, model.ActionDislike) {
		t.Error("guard should stay set after a failed POST")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(notes) != 1 || notes[0] != "error: Failed to submit feedback." {
		t.Errorf("notifications: %v", notes)
	}
}

func TestSubmitErrors(t *testing.T) {
	st := testStore()
	g := NewGuard()

	if _, err := Submit(g, st, nil, 7, model.Action("love"), nil); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if _, err := Submit(g, st, nil, 99, model.ActionLike, nil); !errors.Is(err, ErrUnknownLocation) {
		t.Errorf("expected ErrUnknownLocation, got %v", err)
	}
	if g.Sent(99, model.ActionLike) {
		t.Error("guard should not be set for an unknown location")
	}
}

func TestFormColumns(t *testing.T) {
	sub := NewSubmitter("", map[string]string{"action": "entry.42"}, time.Second, nil)
	form := sub.Form(3, model.ActionLike)
	if form.Get("id") != "3" || form.Get("entry.42") != "like" {
		t.Errorf("form: %v", form)
	}
}

func TestKey(t *testing.T) {
	if k := Key(12, model.ActionDislike); k != "12-dislike" {
		t.Errorf("key: %q", k)
	}
}
