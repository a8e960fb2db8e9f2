package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tedgoddard/Stanford/internal/middleware"
	"go.uber.org/zap"
)

// Model kinds understood by the model service.
const (
	KindParser   = "parser"
	KindTagger   = "tagger"
	KindDepParse = "depparse"
	KindSplitter = "splitter"
)

// ErrCircuitOpen is returned while the model service breaker is open.
var ErrCircuitOpen = errors.New("model service circuit open")

// StatusError is a non-2xx answer from the model service.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model service %s: status %d: %s", e.Path, e.Code, e.Body)
}

// Client talks to the model sidecar that hosts the linguistic models.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *middleware.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a model service client. A nil breaker disables
// circuit breaking.
func NewClient(baseURL string, breaker *middleware.CircuitBreaker, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		breaker:    breaker,
		logger:     logger,
	}
}

// Health checks that the model service answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: "/health", Code: resp.StatusCode}
	}
	return nil
}

type loadRequest struct {
	Path string `json:"path"`
}

// Load asks the model service to load the model at path for kind.
// Loading an already loaded model is a no-op on the service side.
func (c *Client) Load(ctx context.Context, kind, path string) error {
	c.logger.Info("loading model", zap.String("kind", kind), zap.String("path", path))
	if err := c.post(ctx, "/models/"+kind+"/load", loadRequest{Path: path}, nil); err != nil {
		return fmt.Errorf("load %s model %q: %w", kind, path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return ErrCircuitOpen
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A caller giving up is not a service failure.
		if ctx.Err() == nil {
			c.recordFailure()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.recordFailure()
	} else {
		c.recordSuccess()
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

// isUnprocessable reports whether err is the model service refusing the
// input (422), which is how it signals "no parse".
func isUnprocessable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnprocessableEntity
}
