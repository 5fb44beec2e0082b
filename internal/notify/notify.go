// Package notify reports pipeline outcomes to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Payload is a pipeline summary or a free-form message.
type Payload struct {
	Title       string
	Description string
	Executed    []string
	Skipped     []string
	Failed      []string
}

// Notifier delivers a payload. It reports delivery success and never fails loudly.
type Notifier interface {
	Notify(ctx context.Context, p Payload) bool
}

// Noop is the notifier used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(context.Context, Payload) bool { return false }

const (
	colorSummary = 0x00d4aa
	colorMessage = 0x7c3aed
	colorFailure = 0xe5484d
)

// DefaultTimeout bounds one webhook delivery.
const DefaultTimeout = 10 * time.Second

// Webhook posts Discord-compatible embeds.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string, timeout time.Duration, client *http.Client, logger *slog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: url, client: client, timeout: timeout, logger: logger, now: time.Now}
}

// New returns a Webhook for a non-empty url, otherwise Noop.
func New(url string, timeout time.Duration, client *http.Client, logger *slog.Logger) Notifier {
	if strings.TrimSpace(url) == "" {
		return Noop{}
	}
	return NewWebhook(url, timeout, client, logger)
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *struct {
		Text string `json:"text"`
	} `json:"footer,omitempty"`
	Timestamp string `json:"timestamp"`
}

type message struct {
	Embeds []embed `json:"embeds"`
}

func (w *Webhook) build(p Payload) message {
	now := w.now()
	e := embed{
		Title:       p.Title,
		Description: p.Description,
		Color:       colorMessage,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	summary := len(p.Executed)+len(p.Skipped)+len(p.Failed) > 0
	if summary {
		e.Color = colorSummary
		if e.Title == "" {
			e.Title = "Vault pipeline complete"
		}
		if e.Description == "" {
			e.Description = "Pipeline finished at " + now.Format("2006-01-02 15:04")
		}
		add := func(name string, items []string) {
			if len(items) > 0 {
				e.Fields = append(e.Fields, embedField{Name: name, Value: strings.Join(items, ", ")})
			}
		}
		add("Executed", p.Executed)
		add("Skipped", p.Skipped)
		add("Failed", p.Failed)
		if len(p.Failed) > 0 {
			e.Color = colorFailure
		}
		e.Footer = &struct {
			Text string `json:"text"`
		}{Text: "vaultlens"}
	} else if e.Title == "" {
		e.Title = "Vault update"
		if e.Description == "" {
			e.Description = "Vault updated"
		}
	}
	return message{Embeds: []embed{e}}
}

// Notify implements Notifier. Only 200 and 204 count as delivered.
func (w *Webhook) Notify(ctx context.Context, p Payload) bool {
	body, err := json.Marshal(w.build(p))
	if err != nil {
		w.logger.Warn("notify: marshal failed", slog.String("error", err.Error()))
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("notify: bad request", slog.String("error", err.Error()))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("notify: delivery failed", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		w.logger.Warn("notify: webhook rejected", slog.Int("status", resp.StatusCode))
		return false
	}
	w.logger.Debug("notify: delivered")
	return true
}
