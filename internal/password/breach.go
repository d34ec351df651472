package password

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const rangeUserAgent = "pesotrack-app"

// BreachClient queries the Pwned Passwords range API. Only the five-char
// SHA-1 prefix is transmitted; the suffix comparison happens locally.
type BreachClient struct {
	apiURL     string
	httpClient *http.Client
	timeout    time.Duration
}

func NewBreachClient(apiURL string, timeout time.Duration) *BreachClient {
	return &BreachClient{
		apiURL: apiURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
	}
}

func (c *BreachClient) IsPwned(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:5], digest[5:]

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+prefix, nil)
	if err != nil {
		return false, fmt.Errorf("create range request: %w", err)
	}
	req.Header.Set("User-Agent", rangeUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("range request status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return false, fmt.Errorf("read range response: %w", err)
	}

	for _, line := range strings.Split(string(body), "\n") {
		hashSuffix, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(hashSuffix)) == suffix {
			return true, nil
		}
	}
	return false, nil
}
