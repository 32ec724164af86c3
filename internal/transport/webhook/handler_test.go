package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type mockProcessor struct {
	mu   sync.Mutex
	ids  []string
	err  error
	done chan struct{}
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{done: make(chan struct{}, 16)}
}

func (m *mockProcessor) Process(_ context.Context, dealID string) error {
	m.mu.Lock()
	m.ids = append(m.ids, dealID)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func (m *mockProcessor) processed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...)
}

func newTestServer(p *mockProcessor) *httptest.Server {
	h := New(p, time.Minute, zap.NewNop())
	r := chi.NewRouter()
	h.Routes(r)
	return httptest.NewServer(r)
}

func waitProcessed(t *testing.T, p *mockProcessor) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline not dispatched")
	}
}

func assertSuccessBody(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("body = %v", body)
	}
}

func TestWebhookFormDelivery(t *testing.T) {
	p := newMockProcessor()
	srv := newTestServer(p)
	defer srv.Close()

	form := url.Values{"data[FIELDS][ID]": {"42"}}
	resp, err := http.PostForm(srv.URL+"/webhook", form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	assertSuccessBody(t, resp)

	waitProcessed(t, p)
	if ids := p.processed(); len(ids) != 1 || ids[0] != "42" {
		t.Errorf("processed = %v", ids)
	}
}

func TestWebhookJSONDelivery(t *testing.T) {
	p := newMockProcessor()
	srv := newTestServer(p)
	defer srv.Close()

	body := `{"data[ID]": "77"}`
	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	assertSuccessBody(t, resp)

	waitProcessed(t, p)
	if ids := p.processed(); len(ids) != 1 || ids[0] != "77" {
		t.Errorf("processed = %v", ids)
	}
}

func TestWebhookMissingDealIDStillSucceeds(t *testing.T) {
	p := newMockProcessor()
	srv := newTestServer(p)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	assertSuccessBody(t, resp)

	if ids := p.processed(); len(ids) != 0 {
		t.Errorf("processed = %v, want none", ids)
	}
}

func TestWebhookPipelineFailureStillSucceeds(t *testing.T) {
	p := newMockProcessor()
	p.err = errors.New("pipeline exploded")
	srv := newTestServer(p)
	defer srv.Close()

	form := url.Values{"data[ID]": {"9"}}
	resp, err := http.PostForm(srv.URL+"/webhook", form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	assertSuccessBody(t, resp)
	waitProcessed(t, p)
}

func TestRootLiveness(t *testing.T) {
	srv := newTestServer(newMockProcessor())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
