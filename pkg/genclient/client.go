// Package genclient consumes the generation event stream: it issues the
// multipart request, parses server-sent events incrementally, and exposes
// the optimistic UI state a front end renders from.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"studioshot/pkg/bus"
)

// Progress mirrors the progress event payload.
type Progress struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Image   int    `json:"image,omitempty"`
	Total   int    `json:"total,omitempty"`
}

// Image is one generated result.
type Image struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result mirrors the complete event payload.
type Result struct {
	Images           []Image `json:"images"`
	UsedFreeTrial    bool    `json:"usedFreeTrial"`
	CreditsRemaining int     `json:"creditsRemaining"`
	FreeTrialUsed    int     `json:"freeTrialUsed"`
}

type errorPayload struct {
	Error            string `json:"error"`
	CreditsNeeded    *int   `json:"creditsNeeded"`
	CreditsAvailable *int   `json:"creditsAvailable"`
}

// CreditShortfall carries the quota-denial detail of a terminal error event
// so a front end can render the top-up path.
type CreditShortfall struct {
	Needed    int
	Available int
}

// Request carries one generation request.
type Request struct {
	Image    []byte
	Filename string
	MIME     string
	Prompt   string
	Quality  string
	Quantity int
}

// State is a snapshot of the consumer's observable state. Shortfall is set
// only when the run failed because the account lacked credits.
type State struct {
	IsGenerating bool
	Progress     *Progress
	Result       *Result
	Err          string
	Shortfall    *CreditShortfall
}

// Client drives one generation at a time against the service and keeps the
// four observables current. Cancel aborts the transport; the server then
// stops before starting further images but does not preempt one in flight.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	events     *bus.Bus

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// Options configures the client. Events may be nil when no component needs
// the completion fan-out.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Events     *bus.Bus
}

// New builds a client. The HTTP client deliberately has no global timeout;
// the stream stays open for the whole generation and is bounded by the
// request context instead.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("genclient: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		httpClient: httpClient,
		events:     opts.Events,
	}, nil
}

// State returns the current snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel aborts the in-flight request's transport, if any. Event consumption
// stops immediately; the progress indicator resets.
func (c *Client) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.state.IsGenerating = false
	c.state.Progress = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Generate runs one request to its terminal event. It blocks until the
// stream ends, the context is done, or Cancel is called; the final outcome
// is left in the state snapshot and fanned out on the event bus.
func (c *Client) Generate(ctx context.Context, req Request) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.state.IsGenerating {
		c.mu.Unlock()
		cancel()
		return errors.New("genclient: generation already in progress")
	}
	c.state = State{IsGenerating: true}
	c.cancel = cancel
	c.mu.Unlock()

	err := c.run(ctx, req)
	cancel()

	c.mu.Lock()
	c.cancel = nil
	c.state.IsGenerating = false
	if err != nil && c.state.Err == "" && !errors.Is(err, context.Canceled) {
		c.state.Err = err.Error()
	}
	c.mu.Unlock()
	return err
}

func (c *Client) run(ctx context.Context, req Request) error {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", body)
	if err != nil {
		return fmt.Errorf("genclient: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("genclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		message := decodeHTTPError(resp.Body, resp.StatusCode)
		c.setError(message)
		return errors.New("genclient: " + message)
	}

	parser := &Parser{}
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				terminal, err := c.handleEvent(ctx, ev)
				if err != nil {
					return err
				}
				if terminal {
					return nil
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				c.setError("stream ended without a terminal event")
				return errors.New("genclient: stream ended without a terminal event")
			}
			return fmt.Errorf("genclient: read stream: %w", readErr)
		}
	}
}

// handleEvent updates state for one event and reports whether it was
// terminal.
func (c *Client) handleEvent(ctx context.Context, ev Event) (bool, error) {
	switch ev.Name {
	case "progress":
		var p Progress
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return false, nil // tolerate malformed frames, mirroring reconnect-free SSE
		}
		c.mu.Lock()
		c.state.Progress = &p
		c.mu.Unlock()
		return false, nil
	case "error":
		var p errorPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil || p.Error == "" {
			p.Error = "An error occurred"
		}
		c.mu.Lock()
		c.state.Err = p.Error
		if p.CreditsNeeded != nil && p.CreditsAvailable != nil {
			c.state.Shortfall = &CreditShortfall{
				Needed:    *p.CreditsNeeded,
				Available: *p.CreditsAvailable,
			}
		}
		c.mu.Unlock()
		return true, errors.New("genclient: " + p.Error)
	case "complete":
		var r Result
		if err := json.Unmarshal([]byte(ev.Data), &r); err != nil {
			c.setError("malformed completion event")
			return true, fmt.Errorf("genclient: decode complete event: %w", err)
		}
		c.mu.Lock()
		c.state.Result = &r
		c.state.Progress = &Progress{Step: "complete", Message: "Complete!"}
		c.mu.Unlock()
		c.publish(ctx, &r)
		return true, nil
	default:
		return false, nil
	}
}

func (c *Client) publish(ctx context.Context, r *Result) {
	if c.events == nil {
		return
	}
	_ = c.events.Publish(ctx, bus.TopicGenerationComplete, *r)
	_ = c.events.Publish(ctx, bus.TopicCreditsUpdated, r.CreditsRemaining)
}

func (c *Client) setError(message string) {
	c.mu.Lock()
	c.state.Err = message
	c.mu.Unlock()
}

func encodeMultipart(req Request) (*bytes.Buffer, string, error) {
	if len(req.Image) == 0 {
		return nil, "", errors.New("genclient: image is required")
	}
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	filename := req.Filename
	if filename == "" {
		filename = "upload.png"
	}
	mimeType := req.MIME
	if mimeType == "" {
		mimeType = "image/png"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("genclient: create image part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("genclient: write image part: %w", err)
	}

	if req.Prompt != "" {
		if err := w.WriteField("prompt", req.Prompt); err != nil {
			return nil, "", fmt.Errorf("genclient: write prompt field: %w", err)
		}
	}
	if req.Quality != "" {
		if err := w.WriteField("quality", req.Quality); err != nil {
			return nil, "", fmt.Errorf("genclient: write quality field: %w", err)
		}
	}
	if req.Quantity > 0 {
		if err := w.WriteField("quantity", strconv.Itoa(req.Quantity)); err != nil {
			return nil, "", fmt.Errorf("genclient: write quantity field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("genclient: close multipart body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func decodeHTTPError(r io.Reader, status int) string {
	var p errorPayload
	if err := json.NewDecoder(r).Decode(&p); err == nil && p.Error != "" {
		return p.Error
	}
	return fmt.Sprintf("server error: %d", status)
}
