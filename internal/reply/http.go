package reply

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
)

// ErrEmptyReply is returned when the generator answers successfully but
// with no usable text.
var ErrEmptyReply = errors.New("reply generator returned empty text")

// HTTPGenerator calls the reply-generation service over HTTP. The
// request/response bodies are small JSON envelopes; anything other than
// a 2xx status is an error.
type HTTPGenerator struct {
	// BaseURL of the service, e.g. "http://replies:9090". The client
	// POSTs to BaseURL + "/v1/replies".
	BaseURL string
	// Timeout bounds each call. Zero falls back to 10 seconds.
	Timeout time.Duration
	// HTTPClient allows injection in tests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

type generateRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

type generateResponse struct {
	Reply string `json:"reply"`
}

// GenerateReply implements Generator.
func (g *HTTPGenerator) GenerateReply(ctx context.Context, chatID, lastHumanText string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(generateRequest{ChatID: chatID, Message: lastHumanText})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(g.BaseURL, "/") + "/v1/replies"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the error without trusting it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("reply generator status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", ErrEmptyReply
	}
	return out.Reply, nil
}
