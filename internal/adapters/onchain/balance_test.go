package onchain_test

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyledger/internal/adapters/onchain"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

const wallet = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type fakeCaller struct {
	msg ethereum.CallMsg
	out []byte
	err error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msg = msg
	return f.out, f.err
}

func uint256(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestCollateral(t *testing.T) {
	fc := &fakeCaller{out: uint256(12_500_000)}
	b := onchain.NewBalances(fc, onchain.USDCeAddress, 6)

	got, err := b.Collateral(context.Background(), wallet)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got, 1e-9)

	require.NotNil(t, fc.msg.To)
	assert.Equal(t, common.HexToAddress(onchain.USDCeAddress), *fc.msg.To)
	// balanceOf(address) selector + address padded a 32 bytes
	assert.Equal(t, "70a08231", hex.EncodeToString(fc.msg.Data[:4]))
	assert.Len(t, fc.msg.Data, 36)
	assert.Equal(t, common.HexToAddress(wallet).Bytes(), fc.msg.Data[16:36])
}

func TestCollateral_BadWallet(t *testing.T) {
	b := onchain.NewBalances(&fakeCaller{}, onchain.USDCeAddress, 6)

	_, err := b.Collateral(context.Background(), "not-a-wallet")
	var cfgErr *domain.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestCollateral_Errors(t *testing.T) {
	rpcErr := errors.New("rpc down")
	b := onchain.NewBalances(&fakeCaller{err: rpcErr}, onchain.USDCeAddress, 6)
	_, err := b.Collateral(context.Background(), wallet)
	assert.ErrorIs(t, err, rpcErr)

	b = onchain.NewBalances(&fakeCaller{out: []byte{0x01}}, onchain.USDCeAddress, 6)
	_, err = b.Collateral(context.Background(), wallet)
	var shape *domain.PayloadShapeError
	assert.True(t, errors.As(err, &shape))
}
