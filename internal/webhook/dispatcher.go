package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotRetryable = errors.New("delivery is not dead or skipped")

// Dispatcher persists webhook events as deliveries and posts them in the background.
// Attempts are spaced by a fixed backoff; after MaxAttempts the delivery is dead.
type Dispatcher struct {
	db   *gorm.DB
	opts Options
	m    *metrics
}

func NewDispatcher(db *gorm.DB, opts Options) *Dispatcher {
	opts.setDefaults()
	return &Dispatcher{db: db, opts: opts, m: getMetrics()}
}

// Subscribe forwards the webhook events of bus into the outbox.
func (d *Dispatcher) Subscribe(bus *events.Bus) func() {
	var offs []func()
	for _, name := range events.WebhookEvents {
		offs = append(offs, bus.Subscribe(name, func(e events.Event) {
			if _, err := d.Enqueue(e); err != nil {
				d.opts.Logger.WithError(err).WithField("event", e.Name).Error("webhook: enqueue failed")
			}
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (d *Dispatcher) Enqueue(e events.Event) (*models.WebhookDelivery, error) {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	delivery := &models.WebhookDelivery{
		EventID:       e.ID,
		Event:         e.Name,
		Payload:       datatypes.JSON(body),
		Status:        models.DeliveryPending,
		NextAttemptAt: d.opts.Now().UTC(),
	}
	if d.opts.URL == "" {
		delivery.Status = models.DeliverySkipped
		delivery.LastError = "webhook URL not configured"
		d.opts.Logger.WithField("event", e.Name).Warn("webhook: URL not configured, delivery skipped")
	}

	if err := d.db.Create(delivery).Error; err != nil {
		return nil, errors.Wrap(err, "insert delivery")
	}
	d.m.enqueueTotal.WithLabelValues(e.Name, string(delivery.Status)).Inc()
	return delivery, nil
}

func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	d.opts.Logger.WithField("poll_interval", d.opts.PollInterval).Info("webhook: dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if _, err := d.ProcessDue(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			d.opts.Logger.WithError(err).Warn("webhook: process tick failed")
		}
		d.observePending()
	}
}

// ProcessDue attempts every pending delivery whose next attempt is due and returns how
// many were attempted.
func (d *Dispatcher) ProcessDue(ctx context.Context) (int, error) {
	now := d.opts.Now().UTC()

	var due []models.WebhookDelivery
	err := d.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.DeliveryPending, now).
		Order("next_attempt_at ASC").Order("id ASC").
		Limit(d.opts.BatchSize).
		Find(&due).Error
	if err != nil {
		return 0, errors.Wrap(err, "load due deliveries")
	}

	attempted := 0
	for i := range due {
		if ctx.Err() != nil {
			return attempted, ctx.Err()
		}
		if !d.claim(ctx, &due[i], now) {
			continue
		}
		d.attempt(ctx, &due[i])
		attempted++
	}
	return attempted, nil
}

// claim leases the row by pushing next_attempt_at past now. Another instance that
// loaded the same row loses the conditional update.
func (d *Dispatcher) claim(ctx context.Context, delivery *models.WebhookDelivery, now time.Time) bool {
	lease := now.Add(d.opts.Timeout + d.opts.Backoff)
	res := d.db.WithContext(ctx).Model(&models.WebhookDelivery{}).
		Where("id = ? AND status = ? AND next_attempt_at <= ?", delivery.ID, models.DeliveryPending, now).
		Update("next_attempt_at", lease)
	if res.Error != nil {
		d.opts.Logger.WithError(res.Error).WithField("delivery_id", delivery.ID).Warn("webhook: claim failed")
		return false
	}
	return res.RowsAffected == 1
}

func (d *Dispatcher) attempt(ctx context.Context, delivery *models.WebhookDelivery) {
	start := time.Now()
	status, err := d.post(ctx, delivery)
	latency := time.Since(start)

	attempts := delivery.Attempts + 1
	now := d.opts.Now().UTC()
	log := d.opts.Logger.WithFields(logrus.Fields{
		"delivery_id": delivery.ID,
		"event":       delivery.Event,
		"event_id":    delivery.EventID,
		"attempt":     attempts,
	})

	updates := map[string]interface{}{
		"attempts":        attempts,
		"response_status": status,
	}

	switch {
	case err == nil:
		d.record(delivery.Event, "success", latency)
		updates["status"] = models.DeliveryDelivered
		updates["delivered_at"] = now
		updates["last_error"] = ""
		log.Debug("webhook: delivered")
	case attempts >= d.opts.MaxAttempts:
		d.record(delivery.Event, "failure", latency)
		d.m.deadTotal.WithLabelValues(delivery.Event).Inc()
		updates["status"] = models.DeliveryDead
		updates["last_error"] = truncate(err.Error(), d.opts.LastErrorMaxLen)
		log.WithError(err).Error("webhook: delivery failed permanently")
	default:
		d.record(delivery.Event, "failure", latency)
		updates["status"] = models.DeliveryPending
		updates["next_attempt_at"] = now.Add(d.opts.Backoff)
		updates["last_error"] = truncate(err.Error(), d.opts.LastErrorMaxLen)
		log.WithError(err).Warn("webhook: delivery failed, will retry")
	}

	if uerr := d.db.Model(&models.WebhookDelivery{}).Where("id = ?", delivery.ID).Updates(updates).Error; uerr != nil {
		log.WithError(uerr).Error("webhook: failed to record attempt")
	}
}

func (d *Dispatcher) post(ctx context.Context, delivery *models.WebhookDelivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	body := []byte(delivery.Payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.URL, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Event", delivery.Event)
	req.Header.Set("X-Signature", Sign(body, d.opts.Secret))
	req.Header.Set("X-Delivery-ID", delivery.EventID)

	resp, err := d.opts.Client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("webhook request failed: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (d *Dispatcher) record(event, result string, latency time.Duration) {
	d.m.dispatchTotal.WithLabelValues(event, result).Inc()
	d.m.dispatchLatency.WithLabelValues(event, result).Observe(latency.Seconds())
}

func (d *Dispatcher) observePending() {
	var n int64
	if err := d.db.Model(&models.WebhookDelivery{}).Where("status = ?", models.DeliveryPending).Count(&n).Error; err == nil {
		d.m.pending.Set(float64(n))
	}
}

// Requeue resets a dead or skipped delivery so the dispatcher picks it up again.
func Requeue(db *gorm.DB, id uint, now time.Time) (*models.WebhookDelivery, error) {
	var delivery models.WebhookDelivery
	if err := db.First(&delivery, id).Error; err != nil {
		return nil, err
	}
	if delivery.Status != models.DeliveryDead && delivery.Status != models.DeliverySkipped {
		return nil, ErrNotRetryable
	}

	err := db.Model(&delivery).Updates(map[string]interface{}{
		"status":          models.DeliveryPending,
		"attempts":        0,
		"next_attempt_at": now.UTC(),
		"last_error":      "",
	}).Error
	if err != nil {
		return nil, err
	}
	return &delivery, db.First(&delivery, id).Error
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	b := []byte(s[:max])
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}
