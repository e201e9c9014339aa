package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultPushMessage = "You have a new notification"

type GatewayConfig struct {
	BaseURL string
	APIKey  string
}

// GatewaySender delivers pushes through an HTTP push gateway.
type GatewaySender struct {
	httpClient *http.Client
	cfg        GatewayConfig
}

func NewGatewaySender(cfg GatewayConfig) *GatewaySender {
	return &GatewaySender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
	}
}

func (s *GatewaySender) Send(ctx context.Context, deviceToken string) error {
	if strings.TrimSpace(deviceToken) == "" {
		return ErrBlankDeviceToken
	}

	bodyBytes, err := json.Marshal(map[string]string{
		"device_token": deviceToken,
		"message":      defaultPushMessage,
	})
	if err != nil {
		return fmt.Errorf("marshal push request failed: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build push request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
