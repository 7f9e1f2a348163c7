package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

const requestTimeout = 5 * time.Second

// coinIDs maps supported coins to the rate API's asset identifiers.
var coinIDs = map[model.CryptoCurrency]string{
	model.CryptoCurrencyBTC:  "bitcoin",
	model.CryptoCurrencyETH:  "ethereum",
	model.CryptoCurrencyUSDT: "tether",
}

// fallbackRates are the static last-resort quotes used when neither a live
// fetch nor a cached value is available. Deliberately conservative; a
// stale-but-plausible quote beats a failed invoice.
var fallbackRates = map[model.CryptoCurrency]decimal.Decimal{
	model.CryptoCurrencyBTC:  decimal.RequireFromString("350000"),
	model.CryptoCurrencyETH:  decimal.RequireFromString("18000"),
	model.CryptoCurrencyUSDT: decimal.RequireFromString("5.60"),
}

type fiatOracle struct {
	mux *sync.Mutex

	cachedRates map[model.CryptoCurrency]decimal.Decimal
	baseURL     string
	fiat        string
	client      *http.Client
	logger      *logger.Logger
}

func New(appConfig *config.AppConfig, logger *logger.Logger) IOracle {
	return &fiatOracle{
		mux:         &sync.Mutex{},
		cachedRates: map[model.CryptoCurrency]decimal.Decimal{},
		baseURL:     appConfig.RateOracle.BaseURL,
		fiat:        appConfig.RateOracle.FiatCurrency,
		client:      &http.Client{Timeout: requestTimeout},
		logger:      logger,
	}
}

func (o *fiatOracle) GetRate(coin model.CryptoCurrency) (decimal.Decimal, error) {
	coinID, ok := coinIDs[coin]
	if !ok {
		return decimal.Zero, &model.ValidationError{Field: "cryptocurrency", Reason: "unsupported coin " + string(coin)}
	}

	rate, err := o.fetchRate(coinID)
	if err == nil {
		o.updateCachedRate(coin, rate)
		return rate, nil
	}

	o.logger.Warn("[GetRate][fetchRate] falling back to cached rate", map[string]string{
		"coin":  string(coin),
		"error": err.Error(),
	})

	if cached, ok := o.cachedRate(coin); ok {
		return cached, nil
	}

	return fallbackRates[coin], nil
}

func (o *fiatOracle) RefreshAll() {
	for coin := range coinIDs {
		if _, err := o.GetRate(coin); err != nil {
			o.logger.Error("[RefreshAll][GetRate]", map[string]string{
				"coin":  string(coin),
				"error": err.Error(),
			})
		}
	}
}

func (o *fiatOracle) fetchRate(coinID string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", o.baseURL, coinID, o.fiat)

	resp, err := o.client.Get(url)
	if err != nil {
		return decimal.Zero, &model.ExternalServiceError{Service: "rate_oracle", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &model.ExternalServiceError{
			Service: "rate_oracle",
			Err:     fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, &model.ExternalServiceError{Service: "rate_oracle", Err: err}
	}

	var quotes map[string]map[string]float64
	if err := json.Unmarshal(body, &quotes); err != nil {
		return decimal.Zero, &model.ExternalServiceError{
			Service: "rate_oracle",
			Err:     errors.Wrap(err, "failed to parse rate response"),
		}
	}

	rate, ok := quotes[coinID][o.fiat]
	if !ok || rate <= 0 {
		return decimal.Zero, &model.ExternalServiceError{
			Service: "rate_oracle",
			Err:     fmt.Errorf("no %s quote for %s", o.fiat, coinID),
		}
	}

	return decimal.NewFromFloat(rate), nil
}

func (o *fiatOracle) cachedRate(coin model.CryptoCurrency) (decimal.Decimal, bool) {
	o.mux.Lock()
	defer o.mux.Unlock()
	rate, ok := o.cachedRates[coin]
	return rate, ok
}

func (o *fiatOracle) updateCachedRate(coin model.CryptoCurrency, rate decimal.Decimal) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.cachedRates[coin] = rate
}
