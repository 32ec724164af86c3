package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// Deal is the subset of CRM deal fields the pipeline needs.
type Deal struct {
	ID           string
	AssignedByID string
	ContactID    string
	CategoryID   string
	FileID       string
}

// Config holds the CRM REST endpoint settings.
type Config struct {
	RestURL          string // inbound webhook base, e.g. https://portal.example/rest/1/token/
	PortalURL        string // portal base for show_file.php downloads
	FileField        string // UF_* custom field holding the portfolio PDF
	DownloadUser     string
	DownloadPassword string
	Timeout          time.Duration
	Logger           *zap.Logger
}

// Client talks to the Bitrix24 REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a CRM client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Deal fetches a deal by id via crm.deal.list. Returns domain.ErrNotFound
// when the deal does not exist.
func (c *Client) Deal(ctx context.Context, dealID string) (*Deal, error) {
	body := map[string]any{
		"filter": map[string]any{"ID": dealID},
		"select": []string{"ID", "ASSIGNED_BY_ID", c.cfg.FileField, "CONTACT_ID", "CATEGORY_ID"},
	}

	var resp struct {
		Result []map[string]any `json:"result"`
	}
	if err := c.call(ctx, "crm.deal.list", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("deal %s: %w", dealID, domain.ErrNotFound)
	}

	raw := resp.Result[0]
	return &Deal{
		ID:           asString(raw["ID"]),
		AssignedByID: asString(raw["ASSIGNED_BY_ID"]),
		ContactID:    asString(raw["CONTACT_ID"]),
		CategoryID:   asString(raw["CATEGORY_ID"]),
		FileID:       fileID(raw[c.cfg.FileField]),
	}, nil
}

// AddTimelineComment posts a comment to the deal timeline.
// Bitrix replies 200 with an "error" body on failure, so the body is checked.
func (c *Client) AddTimelineComment(ctx context.Context, dealID, comment string) error {
	body := map[string]any{
		"fields": map[string]any{
			"ENTITY_ID":   dealID,
			"ENTITY_TYPE": "deal",
			"COMMENT":     comment,
		},
	}

	var resp struct {
		Result           json.RawMessage `json:"result"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := c.call(ctx, "crm.timeline.comment.add", body, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("crm.timeline.comment.add for deal %s: %s (%s): %w",
			dealID, resp.Error, resp.ErrorDescription, domain.ErrExternalCall)
	}
	return nil
}

// UserName returns the display name of a portal user.
func (c *Client) UserName(ctx context.Context, userID string) (string, error) {
	var resp struct {
		Result []struct {
			Name     string `json:"NAME"`
			LastName string `json:"LAST_NAME"`
		} `json:"result"`
	}
	if err := c.call(ctx, "user.get", map[string]any{"ID": userID}, &resp); err != nil {
		return "", err
	}
	if len(resp.Result) == 0 {
		return "", fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return strings.TrimSpace(resp.Result[0].Name + " " + resp.Result[0].LastName), nil
}

// ContactName returns the display name of a CRM contact.
func (c *Client) ContactName(ctx context.Context, contactID string) (string, error) {
	var resp struct {
		Result struct {
			Name     string `json:"NAME"`
			LastName string `json:"LAST_NAME"`
		} `json:"result"`
	}
	if err := c.call(ctx, "crm.contact.get", map[string]any{"id": contactID}, &resp); err != nil {
		return "", err
	}
	if resp.Result.Name == "" && resp.Result.LastName == "" {
		return "", fmt.Errorf("contact %s: %w", contactID, domain.ErrNotFound)
	}
	return strings.TrimSpace(resp.Result.Name + " " + resp.Result.LastName), nil
}

// DownloadAttachment fetches an uploaded deal file through show_file.php
// using basic auth and writes it to destPath.
func (c *Client) DownloadAttachment(ctx context.Context, fileID, destPath string) error {
	u := fmt.Sprintf("%s/bitrix/tools/show_file.php?%s",
		strings.TrimRight(c.cfg.PortalURL, "/"),
		url.Values{"fileId": {fileID}, "auth": {""}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	req.SetBasicAuth(c.cfg.DownloadUser, c.cfg.DownloadPassword)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download file %s: %w: %w", fileID, domain.ErrExternalCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file %s: status %d: %w", fileID, resp.StatusCode, domain.ErrExternalCall)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// call POSTs a JSON body to a REST method and decodes the response into out.
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	u := strings.TrimRight(c.cfg.RestURL, "/") + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, domain.ErrExternalCall, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s: %w", method, resp.StatusCode, truncate(raw, 200), domain.ErrExternalCall)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	return nil
}

// fileID extracts the file id from a Bitrix file custom field value.
// The REST API returns either a plain id or an object {"id": ..., "showUrl": ...}.
func fileID(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["id"]; ok {
			return asString(id)
		}
		return ""
	case []any:
		if len(t) > 0 {
			return fileID(t[0])
		}
		return ""
	default:
		return asString(v)
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
