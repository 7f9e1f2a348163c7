package model

type CryptoCurrency string

const (
	CryptoCurrencyBTC  CryptoCurrency = "BTC"
	CryptoCurrencyETH  CryptoCurrency = "ETH"
	CryptoCurrencyUSDT CryptoCurrency = "USDT"
)

// CoinFamily selects how an asset is observed on chain: UTXO coins are
// watched through address/UTXO lookups, account coins through
// balance-of-account lookups.
type CoinFamily string

const (
	CoinFamilyUTXO    CoinFamily = "utxo"
	CoinFamilyAccount CoinFamily = "account"
)

func (c CryptoCurrency) Valid() bool {
	switch c {
	case CryptoCurrencyBTC, CryptoCurrencyETH, CryptoCurrencyUSDT:
		return true
	}
	return false
}

func (c CryptoCurrency) Family() CoinFamily {
	if c == CryptoCurrencyBTC {
		return CoinFamilyUTXO
	}
	return CoinFamilyAccount
}

// MinorUnitsPerCoin returns the integer minor units that make up one whole
// coin: satoshis for BTC, gwei for ETH, micro-units for USDT. All coin
// amounts in this module are stored in these units.
func (c CryptoCurrency) MinorUnitsPerCoin() int64 {
	switch c {
	case CryptoCurrencyBTC:
		return 1e8
	case CryptoCurrencyETH:
		return 1e9
	case CryptoCurrencyUSDT:
		return 1e6
	}
	return 0
}
