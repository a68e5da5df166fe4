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

// VoiceClient places scripted outbound calls through a JSON-over-HTTP
// voice provider. The provider reads the script with text-to-speech.
type VoiceClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type voiceRequest struct {
	To     string `json:"to"`
	Script string `json:"script"`
}

// NewVoiceClient builds a voice provider client from config. Returns nil
// when no provider URL is configured.
func NewVoiceClient(cfg config.VoiceConfig, log *logger.Logger) *VoiceClient {
	if !cfg.IsVoiceEnabled() {
		return nil
	}

	return &VoiceClient{
		baseURL: strings.TrimRight(cfg.GetVoiceProviderURL(), "/"),
		apiKey:  cfg.GetVoiceProviderKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

func (c *VoiceClient) Call(ctx context.Context, toE164, script string) error {
	payload := voiceRequest{
		To:     toE164,
		Script: script,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal voice payload: %w", err)
	}

	url := fmt.Sprintf("%s/calls", c.baseURL)
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
		return fmt.Errorf("voice request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("voice provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("voice call placed", "to", toE164)
	return nil
}
