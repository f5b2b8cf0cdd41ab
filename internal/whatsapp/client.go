package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/aylahq/ayla-agent/internal/httpkit"
)

var nonDigits = regexp.MustCompile(`[^\d]`)

// CleanNumber strips everything but digits from a phone number.
func CleanNumber(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// Client talks to one Evolution API instance.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(baseURL, apiKey, instance string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		instance: instance,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(30 * time.Second),
		),
		logger: logger,
	}
}

// Instance returns the configured instance name.
func (c *Client) Instance() string {
	return c.instance
}

type sendTextPayload struct {
	Number  string      `json:"number"`
	Text    string      `json:"text"`
	Options sendOptions `json:"options"`
}

type sendOptions struct {
	Delay       int    `json:"delay"`
	Presence    string `json:"presence"`
	LinkPreview bool   `json:"linkPreview"`
}

// SendText delivers one message to a recipient. The gateway answers
// 200 or 201 on success.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	payload := sendTextPayload{
		Number: CleanNumber(number),
		Text:   text,
		Options: sendOptions{
			Delay:       3500,
			Presence:    "composing",
			LinkPreview: false,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("gateway returned %d: %s",
			resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 2048))
	}
	return nil
}

// ConnectionState is the gateway's view of the WhatsApp session.
type ConnectionState struct {
	Instance string `json:"instance"`
	State    string `json:"state"` // open, connecting, close
}

// CheckConnection asks the gateway whether the instance session is up.
func (c *Client) CheckConnection(ctx context.Context) (*ConnectionState, error) {
	url := fmt.Sprintf("%s/instance/connectionState/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check connection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %d: %s",
			resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 2048))
	}

	var wrapper struct {
		Instance struct {
			InstanceName string `json:"instanceName"`
			State        string `json:"state"`
		} `json:"instance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &ConnectionState{Instance: wrapper.Instance.InstanceName, State: wrapper.Instance.State}, nil
}

// PairingInfo carries what the operator needs to link a phone.
type PairingInfo struct {
	PairingCode string `json:"pairingCode"`
	QRCode      string `json:"code"` // raw QR payload, renderable locally
}

// ConnectInstance starts a pairing session and returns the QR payload
// and pairing code.
func (c *Client) ConnectInstance(ctx context.Context) (*PairingInfo, error) {
	url := fmt.Sprintf("%s/instance/connect/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %d: %s",
			resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 2048))
	}

	var info PairingInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode pairing info: %w", err)
	}
	return &info, nil
}
