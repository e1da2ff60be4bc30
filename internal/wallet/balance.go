// Package wallet supplies the funding wallet's token balance, read-only. The
// engine never holds keys; it only reads the ERC-20 balance the export is
// funded from (USDT on Arbitrum in the reference deployment).
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Client reads ERC-20 balances over a JSON-RPC endpoint.
type Client struct {
	ec       *ethclient.Client
	token    common.Address
	decimals int
	logger   *slog.Logger
}

// New dials the RPC endpoint and validates the token contract address.
func New(ctx context.Context, rpcURL, tokenAddress string, decimals int, logger *slog.Logger) (*Client, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("wallet: invalid token address %q", tokenAddress)
	}
	if decimals <= 0 {
		return nil, fmt.Errorf("wallet: token decimals must be positive, got %d", decimals)
	}

	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial %s: %w", rpcURL, err)
	}

	return &Client{
		ec:       ec,
		token:    common.HexToAddress(tokenAddress),
		decimals: decimals,
		logger:   logger.With(slog.String("component", "wallet")),
	}, nil
}

// BalanceOf returns the holder's token balance in whole token units.
func (c *Client) BalanceOf(ctx context.Context, address string) (float64, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("wallet: invalid holder address %q", address)
	}
	holder := common.HexToAddress(address)

	// balanceOf(address) calldata: selector + left-padded holder address.
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(holder.Bytes(), 32)...)

	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{
		To:   &c.token,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("wallet: balanceOf call: %w", err)
	}

	raw := new(big.Int).SetBytes(out)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.decimals)), nil))
	amount, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), scale).Float64()

	c.logger.DebugContext(ctx, "fetched balance",
		slog.String("holder", holder.Hex()),
		slog.Float64("amount", amount),
	)
	return amount, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}

// Compile-time interface check.
var _ domain.BalanceProvider = (*Client)(nil)
