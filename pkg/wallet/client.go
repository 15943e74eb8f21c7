// Package wallet reads on-chain balances for the Polymarket funding
// wallet. Balance data feeds the circuit breaker and the ops metrics.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	polygonUSDC        = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	polygonCTFExchange = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// Balances holds raw on-chain token balances.
type Balances struct {
	MATIC         *big.Int // wei
	USDC          *big.Int // 6-decimal units
	USDCAllowance *big.Int // 6-decimal units, approved to the CTF exchange
}

// USDCFloat converts the USDC balance to whole dollars.
func (b *Balances) USDCFloat() float64 {
	v, _ := new(big.Float).Quo(new(big.Float).SetInt(b.USDC), big.NewFloat(1e6)).Float64()
	return v
}

// Client fetches balances over a Polygon JSON-RPC endpoint.
type Client struct {
	rpcURL string
	logger *zap.Logger
	abi    abi.ABI
}

// NewClient creates a wallet client for the given RPC endpoint.
func NewClient(rpcURL string, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	return &Client{rpcURL: rpcURL, logger: logger, abi: parsed}, nil
}

// GetBalances fetches MATIC, USDC and the exchange allowance in one pass.
func (c *Client) GetBalances(ctx context.Context, address common.Address) (*Balances, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	matic, err := client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("get MATIC balance: %w", err)
	}

	usdc, err := c.callERC20(ctx, client, polygonUSDC, "balanceOf", address)
	if err != nil {
		return nil, fmt.Errorf("get USDC balance: %w", err)
	}

	allowance, err := c.callERC20(ctx, client, polygonUSDC, "allowance",
		address, common.HexToAddress(polygonCTFExchange))
	if err != nil {
		return nil, fmt.Errorf("get USDC allowance: %w", err)
	}

	return &Balances{MATIC: matic, USDC: usdc, USDCAllowance: allowance}, nil
}

func (c *Client) callERC20(
	ctx context.Context,
	client *ethclient.Client,
	tokenAddr string,
	method string,
	args ...interface{},
) (*big.Int, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	tokenAddress := common.HexToAddress(tokenAddr)
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	return new(big.Int).SetBytes(result), nil
}
