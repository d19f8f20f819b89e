package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	pkgError "github.com/AzielCF/az-pilot/pkg/error"
	pkgUtils "github.com/AzielCF/az-pilot/pkg/utils"
)

// Config holds the outbound delivery settings for due entries.
type Config struct {
	WebhookURLs        []string
	Secret             string
	InsecureSkipVerify bool
}

// LogPublisher records the publish in the log and reports success. It is the
// default when no webhook is configured, useful for development and for
// deployments where the real platform call happens downstream.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, entry domain.ScheduleEntry) error {
	logrus.WithFields(logrus.Fields{
		"entry_id":  entry.ID,
		"pair":      domain.PairKey(entry.AccountID, entry.Platform),
		"target_at": entry.TargetPublishAt.Format(time.RFC3339),
	}).Info("[PUBLISH] Entry due (log-only publisher)")
	return nil
}

// WebhookPublisher delivers due entries to every configured webhook URL. It
// only returns an error when all deliveries fail, so one dead endpoint does
// not poison the whole entry.
type WebhookPublisher struct {
	cfg    Config
	client *http.Client

	// submitFn is swapped out in tests.
	submitFn func(ctx context.Context, postBody []byte, url string) error
}

func NewWebhookPublisher(cfg Config) *WebhookPublisher {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
	p := &WebhookPublisher{
		cfg: cfg,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
	p.submitFn = p.submitWebhook
	return p
}

func (p *WebhookPublisher) Publish(ctx context.Context, entry domain.ScheduleEntry) error {
	total := len(p.cfg.WebhookURLs)
	if total == 0 {
		return pkgError.WebhookError("no webhook URL configured")
	}

	payload := map[string]any{
		"event":   "autopilot.publish",
		"entry":   entry,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}
	postBody, err := json.Marshal(payload)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("Failed to marshal body: %v", err))
	}

	logrus.WithFields(logrus.Fields{
		"entry_id": entry.ID,
		"pair":     domain.PairKey(entry.AccountID, entry.Platform),
		"webhooks": total,
	}).Info("[PUBLISH] Forwarding entry to configured webhook(s)")

	var (
		failed    []string
		successes int
	)
	for _, url := range p.cfg.WebhookURLs {
		if err := p.submitFn(ctx, postBody, url); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", url, err))
			logrus.Warnf("Failed forwarding entry %s to %s: %v", entry.ID, url, err)
			continue
		}
		successes++
	}

	if len(failed) == total {
		return pkgError.WebhookError(fmt.Sprintf("all webhook URLs failed for entry %s: %s", entry.ID, strings.Join(failed, "; ")))
	}

	if len(failed) > 0 {
		logrus.Warnf("Some webhook URLs failed for entry %s (succeeded: %d/%d): %s", entry.ID, successes, total, strings.Join(failed, "; "))
	}

	return nil
}

// submitWebhook delivers the payload to a single URL
func (p *WebhookPublisher) submitWebhook(ctx context.Context, postBody []byte, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("error when create http object %v", err))
	}

	signature, err := pkgUtils.GetMessageDigestOrSignature(postBody, []byte(p.cfg.Secret))
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("error when create signature %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Secret != "" {
		req.Header.Set("X-Hub-Signature-256", fmt.Sprintf("sha256=%s", signature))
	}

	var attempt int
	var maxAttempts = 3
	var sleepDuration = 1 * time.Second

	for attempt = 0; attempt < maxAttempts; attempt++ {
		req.Body = io.NopCloser(bytes.NewBuffer(postBody))
		resp, err := p.client.Do(req)
		if err == nil {
			status := resp.StatusCode
			resp.Body.Close()
			if status >= 200 && status < 300 {
				logrus.Debugf("Successfully submitted webhook on attempt %d", attempt+1)
				return nil
			}
			err = fmt.Errorf("webhook returned status %d", status)
		}
		logrus.Warnf("Attempt %d to submit webhook failed: %v", attempt+1, err)
		if attempt < maxAttempts-1 {
			time.Sleep(sleepDuration)
			sleepDuration *= 2
		}
	}

	return pkgError.WebhookError(fmt.Sprintf("error when submit webhook after %d attempts", attempt))
}
