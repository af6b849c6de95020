// Package geo предоставляет клиент сервиса геолокации по IP-адресу.
// Используется для подсказки «обнаруженная страна» в фильтрах каталога.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом геолокации.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

type lookupResponse struct {
	Country string `json:"country"`
}

// zapLeveled адаптирует zap к интерфейсу логгера retryablehttp.
type zapLeveled struct {
	s *zap.SugaredLogger
}

func (l zapLeveled) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l zapLeveled) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l zapLeveled) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l zapLeveled) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

// NewClient создаёт клиент геолокации по указанному адресу.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.HTTPClient.Timeout = 5 * time.Second
	httpClient.Logger = zapLeveled{s: logger.Sugar()}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// DetectCountry возвращает страну по IP-адресу клиента.
func (c *Client) DetectCountry(ctx context.Context, ip string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("geo client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/json/%s", base, ip)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.Country, nil
}
