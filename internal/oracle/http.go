package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// HTTPConfig configures HTTPClient. Client credentials are optional; when
// ClientID is empty requests are sent unauthenticated.
type HTTPConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// HTTPClient is an AsyncOracle served by a remote selection service:
//
//	POST {base}/selections       -> {"id": "..."}
//	GET  {base}/selections/{id}  -> {"status": "...", "selection": {...}, "reason": "..."}
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client. The context only scopes token fetching.
func NewHTTPClient(ctx context.Context, cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var client *http.Client
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		client = cc.Client(ctx)
		client.Timeout = timeout
	} else {
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

type submitResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/selections", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out submitResponse
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("oracle returned an empty task id")
	}
	return out.ID, nil
}

func (c *HTTPClient) Poll(ctx context.Context, taskID string) (PollResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/selections/"+url.PathEscape(taskID), nil)
	if err != nil {
		return PollResult{}, err
	}
	var out PollResult
	if err := c.do(httpReq, &out); err != nil {
		return PollResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
