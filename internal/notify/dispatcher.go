package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/areyoudear/stageside-sub001/internal/event"
)

const (
	maxRetries     = 3
	requestTimeout = 10 * time.Second
)

// Dispatcher sends events to matching notification targets.
type Dispatcher struct {
	service    *Service
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(service *Service, logger *slog.Logger) *Dispatcher {
	return NewDispatcherWithHTTPClient(service, &http.Client{Timeout: requestTimeout}, logger)
}

// NewDispatcherWithHTTPClient creates a dispatcher with a custom HTTP client (for testing).
func NewDispatcherWithHTTPClient(service *Service, httpClient *http.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		service:    service,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "notify-dispatcher")),
	}
}

// HandleEvent is an event.Handler that delivers the event to every enabled
// target subscribed to its type.
func (d *Dispatcher) HandleEvent(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	targets, err := d.service.ListByEvent(ctx, string(e.Type))
	if err != nil {
		d.logger.Error("listing targets for event", "type", string(e.Type), "error", err)
		return
	}

	for i := range targets {
		target := targets[i]
		if !scoreClears(target, e) {
			continue
		}
		go d.deliver(target, e)
	}
}

// SendDigest delivers a digest to every enabled target subscribed to digest
// events, respecting each target's score floor.
func (d *Dispatcher) SendDigest(ctx context.Context, digest *Digest) error {
	targets, err := d.service.ListByEvent(ctx, string(event.DigestDue))
	if err != nil {
		return fmt.Errorf("listing digest targets: %w", err)
	}

	for i := range targets {
		target := targets[i]
		if target.UserID != digest.UserID {
			continue
		}
		filtered := *digest
		if target.MinScore > 0 {
			filtered.Items = nil
			for _, item := range digest.Items {
				if item.Score >= target.MinScore {
					filtered.Items = append(filtered.Items, item)
				}
			}
		}
		if len(filtered.Items) == 0 {
			continue
		}
		body, err := json.Marshal(filtered)
		if err != nil {
			return fmt.Errorf("encoding digest: %w", err)
		}
		go d.post(target, string(event.DigestDue), body)
	}
	return nil
}

func scoreClears(target Target, e event.Event) bool {
	if target.MinScore <= 0 {
		return true
	}
	score, ok := e.Data["score"].(float64)
	if !ok {
		return true
	}
	return score >= target.MinScore
}

func (d *Dispatcher) deliver(target Target, e event.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		d.logger.Error("encoding event payload", "type", string(e.Type), "error", err)
		return
	}
	d.post(target, string(e.Type), body)
}

func (d *Dispatcher) post(target Target, eventType string, body []byte) {
	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			time.Sleep(backoff)
		}

		lastErr = d.send(target.URL, body)
		if lastErr == nil {
			d.logger.Debug("notification delivered",
				"target", target.ID,
				"event", eventType,
				"attempt", attempt+1,
			)
			return
		}

		d.logger.Warn("notification delivery failed",
			"target", target.ID,
			"event", eventType,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	d.logger.Error("notification delivery exhausted retries",
		"target", target.ID,
		"event", eventType,
		"error", lastErr,
	)
}

func (d *Dispatcher) send(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Stageside-Notify/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
