// Package transport delivers outbound WhatsApp messages.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sales-crm-workers/internal/common/config"
	commonhttp "sales-crm-workers/internal/common/http"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/metrics"
	"sales-crm-workers/internal/common/validation"
)

const defaultCloudAPIURL = "https://graph.facebook.com"

var ErrEmptyMessage = errors.New("message has no body and no media")

// Message is one outbound message. MediaURL, when set, is sent as an image
// with Body as its caption.
type Message struct {
	To       string `json:"to"`
	Body     string `json:"message,omitempty"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// Receipt records which transport accepted a message.
type Receipt struct {
	Transport string `json:"transport"`
	MessageID string `json:"messageId,omitempty"`
}

type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient is empty")
	}
	if msg.Body == "" && msg.MediaURL == "" {
		return ErrEmptyMessage
	}
	return nil
}

func postJSON(ctx context.Context, client *commonhttp.Client, url, token string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// Bridge sends through the local WhatsApp session server.
type Bridge struct {
	baseURL string
	client  *commonhttp.Client
}

func NewBridge(baseURL string, client *commonhttp.Client) *Bridge {
	return &Bridge{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (b *Bridge) Name() string { return "bridge" }

func (b *Bridge) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := validate(msg); err != nil {
		return Receipt{}, err
	}

	payload := map[string]string{"to": msg.To, "message": msg.Body}
	if msg.MediaURL != "" {
		payload["mediaUrl"] = msg.MediaURL
		payload["caption"] = msg.Body
	}

	if _, err := postJSON(ctx, b.client, b.baseURL+"/send", "", payload); err != nil {
		return Receipt{}, err
	}
	return Receipt{Transport: b.Name()}, nil
}

// CloudAPI sends through the Meta WhatsApp Cloud API.
type CloudAPI struct {
	baseURL       string
	version       string
	phoneNumberID string
	token         string
	client        *commonhttp.Client
}

func NewCloudAPI(baseURL, version, phoneNumberID, token string, client *commonhttp.Client) *CloudAPI {
	if baseURL == "" {
		baseURL = defaultCloudAPIURL
	}
	return &CloudAPI{
		baseURL:       strings.TrimRight(baseURL, "/"),
		version:       version,
		phoneNumberID: phoneNumberID,
		token:         token,
		client:        client,
	}
}

func (c *CloudAPI) Name() string { return "cloud_api" }

func (c *CloudAPI) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := validate(msg); err != nil {
		return Receipt{}, err
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                validation.DigitsOnly(msg.To),
	}
	if msg.MediaURL != "" {
		payload["type"] = "image"
		payload["image"] = map[string]string{"link": msg.MediaURL, "caption": msg.Body}
	} else {
		payload["type"] = "text"
		payload["text"] = map[string]string{"body": msg.Body}
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
	data, err := postJSON(ctx, c.client, url, c.token, payload)
	if err != nil {
		return Receipt{}, err
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	receipt := Receipt{Transport: c.Name()}
	if json.Unmarshal(data, &out) == nil && len(out.Messages) > 0 {
		receipt.MessageID = out.Messages[0].ID
	}
	return receipt, nil
}

// Failover tries each sender in order and stops at the first success.
// Each sender is tried once.
type Failover struct {
	senders []Sender
	logger  logger.Logger
}

func NewFailover(log logger.Logger, senders ...Sender) *Failover {
	return &Failover{senders: senders, logger: log}
}

func (f *Failover) Name() string { return "failover" }

func (f *Failover) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := validate(msg); err != nil {
		return Receipt{}, err
	}

	var errs []error
	for _, s := range f.senders {
		receipt, err := s.Send(ctx, msg)
		if err == nil {
			metrics.MessagesSent.WithLabelValues(s.Name(), "sent").Inc()
			return receipt, nil
		}

		metrics.MessagesSent.WithLabelValues(s.Name(), "failed").Inc()
		f.logger.Warn("transport failed", map[string]interface{}{
			"transport": s.Name(),
			"to":        msg.To,
			"error":     err.Error(),
		})
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Receipt{}, fmt.Errorf("no transport configured")
	}
	return Receipt{}, errors.Join(errs...)
}

// FromConfig builds the bridge-then-cloud chain. A transport without its
// address or credentials is left out.
func FromConfig(cfg config.WhatsAppConfig, log logger.Logger) *Failover {
	client := commonhttp.NewClient(config.GetDuration(cfg.Timeout), cfg.RatePerSecond, cfg.Burst)

	var senders []Sender
	if cfg.BridgeURL != "" {
		senders = append(senders, NewBridge(cfg.BridgeURL, client))
	}
	if cfg.PhoneNumberID != "" && cfg.AccessToken != "" {
		senders = append(senders, NewCloudAPI(cfg.CloudAPIURL, cfg.APIVersion, cfg.PhoneNumberID, cfg.AccessToken, client))
	}
	return NewFailover(log, senders...)
}
