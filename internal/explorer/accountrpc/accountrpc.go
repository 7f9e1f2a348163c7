package accountrpc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/orthoplus/crypto-settlement/internal/explorer"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

const requestTimeout = 5 * time.Second

// weiPerGwei scales native balances down to the gwei minor unit this
// module stores account-coin amounts in.
var weiPerGwei = big.NewInt(1e9)

// erc20TransferSelector is the 4-byte selector of transfer(address,uint256).
var erc20TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// erc20BalanceOfSelector is the 4-byte selector of balanceOf(address).
var erc20BalanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Client is the shared RPC connection for the account coin family.
type Client struct {
	eth       *ethclient.Client
	logger    *logger.Logger
	scanDepth int64
}

func New(cfg *config.AppConfig, logger *logger.Logger) (*Client, error) {
	eth, err := ethclient.Dial(cfg.Blockchain.RPCEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial rpc endpoint")
	}

	scanDepth := cfg.Blockchain.ScanDepth
	if scanDepth <= 0 {
		scanDepth = 10
	}

	return &Client{
		eth:       eth,
		logger:    logger,
		scanDepth: scanDepth,
	}, nil
}

// NativeExplorer observes the chain's native asset for an address.
func (c *Client) NativeExplorer() explorer.IExplorer {
	return &nativeExplorer{client: c}
}

// TokenExplorer observes an ERC-20 token balance held by an address.
func (c *Client) TokenExplorer(contractAddr string) explorer.IExplorer {
	return &tokenExplorer{
		client:   c,
		contract: common.HexToAddress(contractAddr),
	}
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (c *Client) tipHeight() (int64, error) {
	ctx, cancel := callCtx()
	defer cancel()

	height, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch block number")
	}
	return int64(height), nil
}

// scanForInbound walks the most recent blocks looking for a transaction
// matched by the predicate. The scan depth is bounded: account chains have
// no address index on a bare RPC node, so the monitor only needs to catch
// payments landing while the watch is live.
func (c *Client) scanForInbound(match func(tx *types.Transaction) bool) (*explorer.TxInfo, error) {
	tip, err := c.tipHeight()
	if err != nil {
		return nil, err
	}

	floor := tip - c.scanDepth
	if floor < 0 {
		floor = 0
	}

	for n := tip; n > floor; n-- {
		ctx, cancel := callCtx()
		block, err := c.eth.BlockByNumber(ctx, big.NewInt(n))
		cancel()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch block %d", n)
		}

		for _, tx := range block.Transactions() {
			if !match(tx) {
				continue
			}
			return &explorer.TxInfo{
				Hash:        tx.Hash().Hex(),
				BlockHeight: n,
				Confirmed:   true,
				Timestamp:   time.Unix(int64(block.Time()), 0),
			}, nil
		}
	}

	return nil, nil
}

type nativeExplorer struct {
	client *Client
}

func (e *nativeExplorer) GetAddressBalance(address string) (int64, error) {
	ctx, cancel := callCtx()
	defer cancel()

	wei, err := e.client.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch native balance")
	}

	gwei := new(big.Int).Div(wei, weiPerGwei)
	if !gwei.IsInt64() {
		return 0, errors.New("native balance overflows minor units")
	}
	return gwei.Int64(), nil
}

func (e *nativeExplorer) GetLatestTransaction(address string) (*explorer.TxInfo, error) {
	target := common.HexToAddress(address)
	return e.client.scanForInbound(func(tx *types.Transaction) bool {
		return tx.To() != nil && *tx.To() == target
	})
}

func (e *nativeExplorer) GetTipHeight() (int64, error) {
	return e.client.tipHeight()
}

type tokenExplorer struct {
	client   *Client
	contract common.Address
}

func (e *tokenExplorer) GetAddressBalance(address string) (int64, error) {
	ctx, cancel := callCtx()
	defer cancel()

	data := make([]byte, 0, 36)
	data = append(data, erc20BalanceOfSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)

	result, err := e.client.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &e.contract,
		Data: data,
	}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to call balanceOf")
	}

	balance := new(big.Int).SetBytes(result)
	if !balance.IsInt64() {
		return 0, errors.New("token balance overflows minor units")
	}
	return balance.Int64(), nil
}

// GetLatestTransaction matches transfer calls into the token contract whose
// recipient argument is the watched address.
func (e *tokenExplorer) GetLatestTransaction(address string) (*explorer.TxInfo, error) {
	target := common.HexToAddress(address)
	return e.client.scanForInbound(func(tx *types.Transaction) bool {
		if tx.To() == nil || *tx.To() != e.contract {
			return false
		}
		data := tx.Data()
		if len(data) < 68 {
			return false
		}
		for i, b := range erc20TransferSelector {
			if data[i] != b {
				return false
			}
		}
		recipient := common.BytesToAddress(data[4:36])
		return recipient == target
	})
}

func (e *tokenExplorer) GetTipHeight() (int64, error) {
	return e.client.tipHeight()
}
