package blockstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/orthoplus/crypto-settlement/internal/explorer"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

const (
	maxRetries     = 3
	requestTimeout = 5 * time.Second
)

type blockstream struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// New returns an explorer for the UTXO coin family backed by a
// blockstream-compatible chain explorer API.
func New(cfg *config.AppConfig, logger *logger.Logger) explorer.IExplorer {
	return &blockstream{
		baseURL: cfg.Bitcoin.BlockstreamAPIURL,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// GetAddressBalance returns the confirmed balance of an address in
// satoshis, computed from funded minus spent output totals.
func (c *blockstream) GetAddressBalance(address string) (int64, error) {
	url := fmt.Sprintf("%s/address/%s", c.baseURL, address)
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.client.Get(url)
		if err != nil {
			lastErr = errors.Wrap(err, "failed to fetch address stats")
			c.logger.Error("[GetAddressBalance][client.Get]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Error("[GetAddressBalance][client.Get]", map[string]string{
				"error":      lastErr.Error(),
				"statusCode": strconv.Itoa(resp.StatusCode),
				"attempt":    strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = errors.Wrap(err, "failed to read response body")
			c.logger.Error("[GetAddressBalance][io.ReadAll]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			continue
		}

		var response GetBalanceResponse
		err = json.Unmarshal(body, &response)
		if err != nil {
			lastErr = errors.Wrap(err, "failed to parse JSON response")
			c.logger.Error("[GetAddressBalance][json.Unmarshal]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			continue
		}

		return response.ChainStats.FundedTxoSum - response.ChainStats.SpentTxoSum, nil
	}

	return 0, lastErr
}

// GetLatestTransaction returns the most recent transaction touching the
// address, or nil when the address has no history yet.
func (c *blockstream) GetLatestTransaction(address string) (*explorer.TxInfo, error) {
	url := fmt.Sprintf("%s/address/%s/txs", c.baseURL, address)
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.client.Get(url)
		if err != nil {
			lastErr = fmt.Errorf("failed to get transactions: %v", err)
			c.logger.Error("[GetLatestTransaction][client.Get]", map[string]string{
				"error":   err.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Error("[GetLatestTransaction][client.Get]", map[string]string{
				"error":      lastErr.Error(),
				"statusCode": strconv.Itoa(resp.StatusCode),
				"attempt":    strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %v", err)
			c.logger.Error("[GetLatestTransaction][io.ReadAll]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			continue
		}

		var txs []Transaction
		err = json.Unmarshal(body, &txs)
		if err != nil {
			lastErr = fmt.Errorf("failed to parse transactions: %v", err)
			c.logger.Error("[GetLatestTransaction][json.Unmarshal]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
				"body":    string(body),
			})
			continue
		}

		if len(txs) == 0 {
			return nil, nil
		}

		// the API returns newest first
		latest := txs[0]
		return &explorer.TxInfo{
			Hash:        latest.TxID,
			BlockHeight: latest.Status.BlockHeight,
			Confirmed:   latest.Status.Confirmed,
			Timestamp:   time.Unix(latest.Status.BlockTime, 0),
			Fee:         latest.Fee,
		}, nil
	}

	return nil, lastErr
}

// GetTipHeight returns the current chain tip height for confirmation
// arithmetic.
func (c *blockstream) GetTipHeight() (int64, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", c.baseURL)
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.client.Get(url)
		if err != nil {
			lastErr = errors.Wrap(err, "failed to fetch tip height")
			c.logger.Error("[GetTipHeight][client.Get]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Error("[GetTipHeight][client.Get]", map[string]string{
				"error":      lastErr.Error(),
				"statusCode": strconv.Itoa(resp.StatusCode),
				"attempt":    strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = errors.Wrap(err, "failed to read response body")
			c.logger.Error("[GetTipHeight][io.ReadAll]", map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			continue
		}

		height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
		if err != nil {
			lastErr = errors.Wrap(err, "failed to parse tip height")
			c.logger.Error("[GetTipHeight][ParseInt]", map[string]string{
				"error": lastErr.Error(),
				"body":  string(body),
			})
			continue
		}

		return height, nil
	}

	return 0, lastErr
}
