package services

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
)

// HTTPCommandChannel deposits a command as a device's pending command by
// PATCHing the device-management API itself — the same server-to-server
// path the original scheduler worker used — authenticated with the system
// credential rather than a per-device token.
type HTTPCommandChannel struct {
	baseURL     string
	systemToken string
	client      *http.Client
}

func NewHTTPCommandChannel(baseURL, systemToken string, timeout time.Duration) *HTTPCommandChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCommandChannel{
		baseURL:     strings.TrimRight(baseURL, "/"),
		systemToken: systemToken,
		client:      &http.Client{Timeout: timeout},
	}
}

// Push sets the payload as the pending command of the addressed device.
// Any non-2xx response is a transport failure.
func (c *HTTPCommandChannel) Push(ctx context.Context, deviceID string, payload string) error {
	body, err := json.Marshal(map[string]json.RawMessage{
		"pending_command": json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("encode command for %s: %w", deviceID, err)
	}

	endpoint := fmt.Sprintf("%s/devices/%s", c.baseURL, url.PathEscape(deviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request for %s: %w", deviceID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.systemToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push command to %s: %w", deviceID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push command to %s: unexpected status %d", deviceID, resp.StatusCode)
	}
	return nil
}
