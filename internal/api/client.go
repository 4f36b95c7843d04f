package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inspectsync/internal/auth"
	"inspectsync/internal/inspection"

	"github.com/go-resty/resty/v2"
)

// Client talks to the inspection backend
type Client struct {
	baseURL string
	tokens  auth.TokenSource
	http    *resty.Client
}

// Options tunes the underlying HTTP client
type Options struct {
	Timeout    time.Duration
	RetryCount int // in-call retries on 429/5xx
	UserAgent  string
}

// Attachment references a local file uploaded under a logical form field
type Attachment struct {
	Field       string `json:"field"`
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
}

// Submission is one module payload for one inspection
type Submission struct {
	EntityID    string
	Module      inspection.ModuleKey
	Payload     json.RawMessage
	Attachments []Attachment
}

// NewClient creates a new inspection API client
func NewClient(baseURL string, tokens auth.TokenSource, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "inspectsync/1.0"
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}

	client.http = resty.New().
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		// Attachment files are rewound before a retry resends them
		SetRetryResetReaders(true).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on 429 (Too Many Requests) and 5xx server errors
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	return client
}

// Health checks that the backend is reachable
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Get(c.buildURL("api/health"))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !resp.IsSuccess() {
		return newStatusError(resp)
	}
	return nil
}

// FetchInspection retrieves the last known server state of an inspection
func (c *Client) FetchInspection(ctx context.Context, entityID string) (map[string]any, error) {
	req, err := c.newRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(c.buildURL(fmt.Sprintf("api/inspections/%s", entityID)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inspection %s: %w", entityID, err)
	}
	if !resp.IsSuccess() {
		return nil, newStatusError(resp)
	}

	var result map[string]any
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

// Submit uploads one module payload. Payloads with attachments are sent as
// multipart/form-data with the JSON document in the "payload" field.
func (c *Client) Submit(ctx context.Context, sub Submission) error {
	if sub.EntityID == "" {
		return fmt.Errorf("submission has no entity id")
	}

	req, err := c.newRequest(ctx)
	if err != nil {
		return err
	}

	if len(sub.Attachments) == 0 {
		req.SetHeader("Content-Type", "application/json").SetBody(sub.Payload)
	} else {
		files, err := openAttachments(sub.Attachments)
		if err != nil {
			return err
		}
		defer func() {
			for _, f := range files {
				f.Close()
			}
		}()

		fields := make([]*resty.MultipartField, 0, len(files))
		for i, a := range sub.Attachments {
			fields = append(fields, &resty.MultipartField{
				Param:       a.Field,
				FileName:    filepath.Base(a.Path),
				ContentType: contentTypeOrDefault(a.ContentType),
				Reader:      files[i],
			})
		}
		req.SetMultipartFormData(map[string]string{"payload": string(sub.Payload)}).
			SetMultipartFields(fields...)
	}

	endpoint := fmt.Sprintf("api/inspections/%s/%s", sub.EntityID, sub.Module)
	resp, err := req.Post(c.buildURL(endpoint))
	if err != nil {
		return fmt.Errorf("failed to submit %s for %s: %w", sub.Module, sub.EntityID, err)
	}
	if !resp.IsSuccess() {
		return newStatusError(resp)
	}
	return nil
}

// SetTimeout allows customizing the timeout for specific operations
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}

func (c *Client) newRequest(ctx context.Context) (*resty.Request, error) {
	req := c.http.R().SetContext(ctx)
	if c.tokens == nil {
		return req, nil
	}

	token, err := c.tokens.Token()
	if err != nil && !errors.Is(err, auth.ErrNoToken) {
		return nil, err
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	return req, nil
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

func openAttachments(attachments []Attachment) ([]*os.File, error) {
	files := make([]*os.File, 0, len(attachments))
	for _, a := range attachments {
		f, err := os.Open(a.Path)
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s (%s)", ErrAttachmentMissing, a.Path, a.Field)
			}
			return nil, fmt.Errorf("failed to open attachment %s: %w", a.Path, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
