// Package api is the HTTP client for the document-Q&A backend. The backend
// owns all retrieval, persistence, and generation; this client only moves
// JSON and files across the wire.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := c.doJSON(ctx, http.MethodGet, "/history", nil, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var out []Message
	path := "/history/" + url.PathEscape(sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, s Session) error {
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if err := c.doJSON(ctx, http.MethodPost, "/history", s, nil); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/history/" + url.PathEscape(sessionID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (c *Client) RenameSession(ctx context.Context, sessionID, title string) error {
	path := "/history/" + url.PathEscape(sessionID)
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("rename session %s: %w", sessionID, err)
	}
	return nil
}

func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	var out QueryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/query", req, &out); err != nil {
		return QueryResponse{}, fmt.Errorf("query: %w", err)
	}
	return out, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var out []Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &out); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, name string) error {
	path := "/documents/" + url.PathEscape(name)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete document %s: %w", name, err)
	}
	return nil
}

// Upload posts the given files as a multipart form under the repeated
// "files" field, matching the backend's upload endpoint.
func (c *Client) Upload(ctx context.Context, paths []string) (UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return UploadResult{}, fmt.Errorf("open upload file: %w", err)
		}
		part, err := w.CreateFormFile("files", filepath.Base(p))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return UploadResult{}, fmt.Errorf("write upload part %s: %w", filepath.Base(p), err)
		}
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out UploadResult
	if err := c.send(req, &out); err != nil {
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	return out, nil
}

func (c *Client) Reindex(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/reindex", nil, nil); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (SystemStatus, error) {
	var out SystemStatus
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return SystemStatus{}, fmt.Errorf("status: %w", err)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("response status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response json: %w", err)
	}
	return nil
}
