package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// SMSClient sends text messages through a JSON-over-HTTP SMS gateway.
type SMSClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type smsRequest struct {
	To        string   `json:"to"`
	Message   string   `json:"message"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// NewSMSClient builds an SMS gateway client from config. Returns nil when
// no provider URL is configured.
func NewSMSClient(cfg config.SMSConfig, log *logger.Logger) *SMSClient {
	if !cfg.IsSMSEnabled() {
		return nil
	}

	return &SMSClient{
		baseURL: strings.TrimRight(cfg.GetSMSProviderURL(), "/"),
		apiKey:  cfg.GetSMSProviderKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (c *SMSClient) Send(ctx context.Context, toE164, message string, mediaURLs []string) error {
	payload := smsRequest{
		To:        toE164,
		Message:   message,
		MediaURLs: mediaURLs,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	url := fmt.Sprintf("%s/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("sms sent", "to", toE164)
	return nil
}
