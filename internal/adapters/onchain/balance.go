package onchain

// balance.go: lectura on-chain del colateral (USDC.e) de una wallet en Polygon.
// Se usa cuando la API no devuelve cash para la cuenta.

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const (
	// USDC.e collateral on Polygon
	USDCeAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	usdcDecimals = 6
)

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}

// Balances lee saldos ERC20 vía eth_call.
type Balances struct {
	caller   ethereum.ContractCaller
	token    common.Address
	decimals int
}

// Dial conecta al RPC y devuelve un lector del colateral USDC.e.
func Dial(ctx context.Context, rpcURL string) (*Balances, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial rpc %s: %w", rpcURL, err)
	}
	return NewBalances(client, USDCeAddress, usdcDecimals), nil
}

// NewBalances crea un lector sobre cualquier ContractCaller (tests usan un fake).
func NewBalances(caller ethereum.ContractCaller, token string, decimals int) *Balances {
	return &Balances{caller: caller, token: common.HexToAddress(token), decimals: decimals}
}

// Collateral devuelve el saldo del token en unidades enteras (dólares para USDC).
func (b *Balances) Collateral(ctx context.Context, wallet string) (float64, error) {
	if !common.IsHexAddress(wallet) {
		return 0, &domain.ConfigurationError{Field: "POLYMARKET_WALLET", Msg: fmt.Sprintf("not a hex address: %q", wallet)}
	}
	data, err := erc20ABI.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return 0, fmt.Errorf("onchain: pack balanceOf: %w", err)
	}

	token := b.token
	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("onchain: balanceOf %s: %w", wallet, err)
	}

	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil || len(values) != 1 {
		return 0, &domain.PayloadShapeError{Record: "balanceOf", Msg: fmt.Sprintf("unexpected return data (%d bytes)", len(out))}
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return 0, &domain.PayloadShapeError{Record: "balanceOf", Msg: fmt.Sprintf("unexpected type %T", values[0])}
	}
	return decimal.NewFromBigInt(raw, int32(-b.decimals)).InexactFloat64(), nil
}
