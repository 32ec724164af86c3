package bitrix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

const fileField = "UF_CRM_1730832791461"

func newTestClient(restURL, portalURL string) *Client {
	return New(Config{
		RestURL:          restURL,
		PortalURL:        portalURL,
		FileField:        fileField,
		DownloadUser:     "svc",
		DownloadPassword: "secret",
		Logger:           zap.NewNop(),
	})
}

func TestDeal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/1/token/crm.deal.list" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Filter map[string]any `json:"filter"`
			Select []string       `json:"select"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Filter["ID"] != "42" {
			t.Errorf("filter = %v", req.Filter)
		}
		var hasFileField bool
		for _, s := range req.Select {
			if s == fileField {
				hasFileField = true
			}
		}
		if !hasFileField {
			t.Errorf("select missing file field: %v", req.Select)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{{
				"ID":             "42",
				"ASSIGNED_BY_ID": "7",
				"CONTACT_ID":     "99",
				"CATEGORY_ID":    "19",
				fileField:        map[string]any{"id": float64(314), "showUrl": "/x"},
			}},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL+"/rest/1/token/", server.URL)

	deal, err := c.Deal(context.Background(), "42")
	if err != nil {
		t.Fatalf("Deal: %v", err)
	}
	if deal.ID != "42" || deal.AssignedByID != "7" || deal.ContactID != "99" {
		t.Errorf("deal = %+v", deal)
	}
	if deal.CategoryID != "19" {
		t.Errorf("category = %q", deal.CategoryID)
	}
	if deal.FileID != "314" {
		t.Errorf("file id = %q, want 314", deal.FileID)
	}
}

func TestDealNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	_, err := c.Deal(context.Background(), "404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDealNoAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{{"ID": "42", "ASSIGNED_BY_ID": "7"}},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	deal, err := c.Deal(context.Background(), "42")
	if err != nil {
		t.Fatalf("Deal: %v", err)
	}
	if deal.FileID != "" {
		t.Errorf("file id = %q, want empty", deal.FileID)
	}
}

func TestAddTimelineComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm.timeline.comment.add" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Fields["ENTITY_ID"] != "42" || req.Fields["ENTITY_TYPE"] != "deal" {
			t.Errorf("fields = %v", req.Fields)
		}
		json.NewEncoder(w).Encode(map[string]any{"result": 123})
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	if err := c.AddTimelineComment(context.Background(), "42", "[B]Análise[/B]"); err != nil {
		t.Fatalf("AddTimelineComment: %v", err)
	}
}

func TestAddTimelineCommentErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Bitrix reports failures with HTTP 200 and an error payload
		json.NewEncoder(w).Encode(map[string]any{
			"error":             "ERROR_CORE",
			"error_description": "Access denied",
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	err := c.AddTimelineComment(context.Background(), "42", "x")
	if !errors.Is(err, domain.ErrExternalCall) {
		t.Errorf("err = %v, want ErrExternalCall", err)
	}
}

func TestUserName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{{"NAME": "Maria", "LAST_NAME": "Souza"}},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	name, err := c.UserName(context.Background(), "7")
	if err != nil {
		t.Fatalf("UserName: %v", err)
	}
	if name != "Maria Souza" {
		t.Errorf("name = %q", name)
	}
}

func TestDownloadAttachment(t *testing.T) {
	content := []byte("%PDF-1.4 fake")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bitrix/tools/show_file.php" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "secret" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		if r.URL.Query().Get("fileId") != "314" {
			t.Errorf("fileId = %q", r.URL.Query().Get("fileId"))
		}
		w.Write(content)
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	dest := filepath.Join(t.TempDir(), "7_42.pdf")
	if err := c.DownloadAttachment(context.Background(), "314", dest); err != nil {
		t.Fatalf("DownloadAttachment: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("downloaded content mismatch")
	}
}

func TestDownloadAttachmentHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := newTestClient(server.URL, server.URL)

	err := c.DownloadAttachment(context.Background(), "314", filepath.Join(t.TempDir(), "x.pdf"))
	if !errors.Is(err, domain.ErrExternalCall) {
		t.Errorf("err = %v, want ErrExternalCall", err)
	}
}
