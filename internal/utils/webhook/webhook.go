package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

const defaultTimeout = 10 * time.Second

// SettlementNotification is posted to a clinic's server endpoint when one of
// its invoices settles.
type SettlementNotification struct {
	InvoiceID      string          `json:"invoice_id"`
	ClinicID       string          `json:"clinic_id"`
	Cryptocurrency string          `json:"cryptocurrency"`
	CoinAmount     int64           `json:"coin_amount"`
	FiatAmount     string          `json:"fiat_amount"`
	TxHash         string          `json:"transaction_hash"`
	Confirmations  int64           `json:"confirmations"`
	SettledAt      time.Time       `json:"settled_at"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

type INotifier interface {
	Probe(ctx context.Context, endpoint string) model.HealthStatus
	NotifySettlement(ctx context.Context, endpoint string, notification SettlementNotification) error
}

type Client struct {
	client *http.Client
	logger *logger.Logger
}

func New(logger *logger.Logger) INotifier {
	return &Client{
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

// Probe checks a clinic server endpoint and maps the result onto the
// configured health states. Unreachable endpoints are down, non-2xx
// responses degraded.
func (c *Client) Probe(ctx context.Context, endpoint string) model.HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.HealthStatusDown
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("[Probe] clinic endpoint unreachable", map[string]string{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return model.HealthStatusDown
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return model.HealthStatusHealthy
	}
	return model.HealthStatusDegraded
}

func (c *Client) NotifySettlement(ctx context.Context, endpoint string, notification SettlementNotification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settlement notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &model.ExternalServiceError{
			Service: "clinic_server",
			Err:     errors.Wrap(err, "failed to deliver settlement notification"),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.ExternalServiceError{
			Service: "clinic_server",
			Err:     fmt.Errorf("settlement notification rejected with status %d", resp.StatusCode),
		}
	}
	return nil
}
