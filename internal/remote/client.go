// Package remote talks to the inspection API over HTTP.
//
// The submission contract: one multipart request per target, addressed to the
// target's status-update endpoint, carrying the status fields and one binary
// part per photo. Success means a definitive 2xx acknowledgment; everything
// else is a DeliveryError and is never retried here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fiscalia/campo/internal/codec"
	"github.com/fiscalia/campo/internal/record"
)

// Client talks to the inspection HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	defaultUserAgent = "campo/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client for the given base URL. The token is the opaque
// bearer credential attached to every request; session handling beyond that
// is not this client's concern.
func NewClient(rawURL, token string) (*Client, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		token:     token,
		userAgent: defaultUserAgent,
	}, nil
}

// Submit delivers one pending submission to the target's status-update
// endpoint as a single multipart PUT. Photos are reconstructed from their
// stored bytes; the checklist travels as a JSON-encoded array field.
func (c *Client) Submit(ctx context.Context, sub record.Submission) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}

	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return &DeliveryError{TargetID: sub.TargetID, Err: err}
	}

	rel := &url.URL{Path: fmt.Sprintf("/target/%d/status", sub.TargetID)}
	reqURL := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL.String(), body)
	if err != nil {
		return &DeliveryError{TargetID: sub.TargetID, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	c.setCommonHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &DeliveryError{TargetID: sub.TargetID, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{TargetID: sub.TargetID, StatusCode: resp.StatusCode}
	}
	return nil
}

// encodeSubmission builds the multipart body for the status-update endpoint.
func encodeSubmission(sub record.Submission) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("status", string(sub.Status)); err != nil {
		return nil, "", fmt.Errorf("write status field: %w", err)
	}
	if err := w.WriteField("observacao", sub.Observation); err != nil {
		return nil, "", fmt.Errorf("write observacao field: %w", err)
	}
	if err := w.WriteField("userId", strconv.FormatInt(sub.UserID, 10)); err != nil {
		return nil, "", fmt.Errorf("write userId field: %w", err)
	}

	// The checklist field is omitted entirely when there are no answers;
	// the server treats absence and empty the same way.
	if len(sub.Checklist) > 0 {
		checklistJSON, err := json.Marshal(sub.Checklist)
		if err != nil {
			return nil, "", fmt.Errorf("marshal checklist: %w", err)
		}
		if err := w.WriteField("checklist", string(checklistJSON)); err != nil {
			return nil, "", fmt.Errorf("write checklist field: %w", err)
		}
	}

	// All photos share the "files" field name; each part carries its own
	// filename and stored MIME type. Stored blobs go back through the codec
	// to become readable binary objects again.
	for i, photo := range sub.Photos {
		src := codec.Decode(photo)

		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%s`,
			strconv.Quote(src.Name)))
		header.Set("Content-Type", src.MIMEType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create photo part %d: %w", i, err)
		}
		if _, err := io.Copy(part, src.Reader); err != nil {
			return nil, "", fmt.Errorf("write photo part %d: %w", i, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Ping probes API reachability. Any HTTP response counts as reachable, even
// an error status: connectivity is what is being measured, not correctness.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: "/health"}
	reqURL := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// FetchTargets retrieves the target list for the reference cache.
func (c *Client) FetchTargets(ctx context.Context) ([]json.RawMessage, error) {
	return c.getList(ctx, "/targets")
}

// FetchUsers retrieves the user list for the reference cache.
func (c *Client) FetchUsers(ctx context.Context) ([]json.RawMessage, error) {
	return c.getList(ctx, "/users")
}

// FetchTeams retrieves the team list for the reference cache.
func (c *Client) FetchTeams(ctx context.Context) ([]json.RawMessage, error) {
	return c.getList(ctx, "/teams")
}

// FetchServices retrieves the checklist service catalog for the reference cache.
func (c *Client) FetchServices(ctx context.Context) ([]json.RawMessage, error) {
	return c.getList(ctx, "/servicos")
}

func (c *Client) getList(ctx context.Context, path string) ([]json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func parseBaseURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", rawURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
