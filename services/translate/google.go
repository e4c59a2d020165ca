package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rvolkov/toritracker/logger"
)

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleTranslator implements Translator against Google's public web
// translation endpoint.
type GoogleTranslator struct {
	client   *http.Client
	endpoint string
	log      *logger.Logger
}

// NewGoogleTranslator creates a translator with a bounded request timeout.
func NewGoogleTranslator() *GoogleTranslator {
	return &GoogleTranslator{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: defaultEndpoint,
		log:      logger.ForTranslator(),
	}
}

// Translate implements Translator
func (g *GoogleTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" || from == to {
		return text, nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create translate request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read translate response: %w", err)
	}

	return decodeResponse(body)
}

// decodeResponse extracts the translated segments from the endpoint's nested
// array response: [[["<translated>", "<original>", ...], ...], ...]
func decodeResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("unexpected translate response shape: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translate response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected translate segment shape: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("translate response carried no text")
	}
	return b.String(), nil
}
