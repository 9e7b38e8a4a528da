// Package sms sends text messages through an HTTP SMS gateway.
package sms

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

	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

var errLoggerRequired = errors.New("sms logger is required")

// Message is one outbound text.
type Message struct {
	To   string `json:"to"`
	Body string `json:"body"`
	From string `json:"from,omitempty"`
}

// Sender abstracts the delivery channel so dispatch logic can be tested
// without a live gateway.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client talks to the configured SMS gateway.
type Client struct {
	cfg    config.SMSConfig
	http   *http.Client
	logger *logger.Logger
}

// NewClient initializes the gateway wrapper.
func NewClient(cfg config.SMSConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logg,
	}, nil
}

// Send delivers one message. In dry-run mode (or with no gateway configured)
// the message is logged and reported as sent, which keeps dev environments
// working without credentials.
func (c *Client) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms recipient required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms body required")
	}
	if msg.From == "" {
		msg.From = c.cfg.SenderID
	}

	if c.cfg.DryRun || c.cfg.GatewayURL == "" {
		logCtx := c.logger.WithFields(ctx, map[string]any{"to": to, "dry_run": true})
		c.logger.Info(logCtx, "sms.skipped")
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sms payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sms gateway unreachable")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("sms gateway returned status %d", resp.StatusCode))
	}

	logCtx := c.logger.WithField(ctx, "to", to)
	c.logger.Info(logCtx, "sms.sent")
	return nil
}
