package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

func TestParseIntent(t *testing.T) {
	intent, err := parseIntent([]string{"-side", "buy", "-market", "m1", "-outcome", "YES", "-price", "0.4", "-stake", "10"})
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, intent.Side)
	assert.Equal(t, "m1", intent.MarketID)
	assert.InDelta(t, 0.4, intent.Price, 1e-12)
	assert.False(t, intent.Shares.Valid)
	assert.True(t, intent.Stake.Valid)
	assert.InDelta(t, 10, intent.Stake.Value, 1e-12)
}

func TestParseIntent_Errors(t *testing.T) {
	var vErr *domain.ValidationError

	_, err := parseIntent([]string{"-side", "hold"})
	assert.True(t, errors.As(err, &vErr))

	_, err = parseIntent([]string{"-side", "SELL", "-shares", "ten"})
	assert.True(t, errors.As(err, &vErr))

	_, err = parseIntent([]string{"-bogus"})
	assert.ErrorIs(t, err, errUsage)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(&domain.ConfigurationError{Field: "x", Msg: "y"}))
	assert.Equal(t, 4, exitCode(&domain.EndpointExhaustedError{}))
	assert.Equal(t, 1, exitCode(errors.New("other")))
}
