package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/orthoplus/crypto-settlement/internal/types/environments"
	"github.com/orthoplus/crypto-settlement/internal/utils/vault"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Postgres    DBConnection
	Bitcoin     BitcoinConfig
	Blockchain  BlockchainConfig
	RateOracle  RateOracleConfig
	Settlement  SettlementConfig
}

type ApiServerConfig struct {
	Port           string
	AllowedOrigins string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

type BitcoinConfig struct {
	BlockstreamAPIURL string
}

type BlockchainConfig struct {
	RPCEndpoint      string
	USDTContractAddr string
	ScanDepth        int64
}

type RateOracleConfig struct {
	BaseURL      string
	FiatCurrency string
}

// SettlementConfig carries the tunable settlement policy knobs.
type SettlementConfig struct {
	// PollInterval is the delay between monitor ticks per watched address.
	PollInterval time.Duration
	// WatchCeiling is the hard lifetime of a watch with no confirmation.
	WatchCeiling time.Duration
	// ToleranceBps is the accepted fraction of the expected amount, in
	// basis points (9500 = accept >= 95%, covering sender-side fees).
	ToleranceBps int64
	// WebhookSecret signs inbound webhook payloads. Empty disables
	// verification and is tolerated only for development.
	WebhookSecret string
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	secrets := newSecretSource()

	return &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			Port:           envVarOrDefault("API_PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    secrets.get("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Bitcoin: BitcoinConfig{
			BlockstreamAPIURL: os.Getenv("BTC_BLOCKSTREAM_API_URL"),
		},
		Blockchain: BlockchainConfig{
			RPCEndpoint:      os.Getenv("BLOCKCHAIN_RPC_ENDPOINT"),
			USDTContractAddr: os.Getenv("BLOCKCHAIN_USDT_CONTRACT_ADDR"),
			ScanDepth:        envVarAsInt64("BLOCKCHAIN_SCAN_DEPTH", 10),
		},
		RateOracle: RateOracleConfig{
			BaseURL:      os.Getenv("RATE_ORACLE_BASE_URL"),
			FiatCurrency: envVarOrDefault("RATE_ORACLE_FIAT", "brl"),
		},
		Settlement: SettlementConfig{
			PollInterval:  envVarAsDuration("MONITOR_POLL_INTERVAL", 30*time.Second),
			WatchCeiling:  envVarAsDuration("MONITOR_WATCH_CEILING", 2*time.Hour),
			ToleranceBps:  envVarAsInt64("MONITOR_TOLERANCE_BPS", 9500),
			WebhookSecret: secrets.get("WEBHOOK_SECRET"),
		},
	}
}

// secretSource resolves sensitive values through Vault when the deployment
// provides one, otherwise straight from the environment.
type secretSource struct {
	vault *vault.Client
}

func newSecretSource() *secretSource {
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return &secretSource{}
	}

	vc, err := vault.New(addr, os.Getenv("VAULT_KV_PATH"), os.Getenv("VAULT_ROLE"))
	if err != nil {
		// unreachable Vault falls back to environment variables
		return &secretSource{}
	}
	return &secretSource{vault: vc}
}

func (s *secretSource) get(key string) string {
	if s.vault != nil {
		if value, err := s.vault.GetKV(key); err == nil && value != "" {
			return value
		}
	}
	return os.Getenv(key)
}

func envVarOrDefault(envName, fallback string) string {
	value := os.Getenv(envName)
	if value == "" {
		return fallback
	}
	return value
}

func envVarAsInt64(envName string, fallback int64) int64 {
	valueStr := os.Getenv(envName)
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envVarAsDuration(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}
