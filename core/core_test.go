package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	valid := map[string]string{
		"1":                    "1",
		" 100000000 ":          "100000000",
		"18446744073709551615": "18446744073709551615",
	}
	for in, want := range valid {
		d, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String())
	}

	for _, in := range []string{"", "0", "-1", "+1", "1.5", "1.0", "1e3", "0x10", "1_000", "abc", "18446744073709551616", "1e30"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrKeyNotFound)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "no agent key registered for wallet", Reason(wrapped))

	joined := errors.Join(errors.New("dial tcp: refused"), ErrStore)
	assert.Equal(t, KindInternal, KindOf(joined))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "internal error", Reason(plain))

	assert.Equal(t, KindAuth, KindOf(ErrReplayDetected))
	assert.Equal(t, "auth", KindAuth.String())
}

func TestNonceRecord_Expired(t *testing.T) {
	issued := time.Unix(1000, 0)
	rec := NonceRecord{IssuedAt: issued}

	assert.False(t, rec.Expired(issued.Add(5*time.Minute), 5*time.Minute))
	assert.True(t, rec.Expired(issued.Add(5*time.Minute+time.Nanosecond), 5*time.Minute))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{WalletAddress: "0xabc"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "0xabc", id.WalletAddress)
}

func TestCoinStandardPayload(t *testing.T) {
	p := CoinStandardPayload{
		Sender:    "0x1",
		Function:  "0x1::pool::lend",
		CoinType:  "0x1::aptos_coin::AptosCoin",
		Arguments: []any{uint64(1)},
	}
	require.NoError(t, p.Validate())
	assert.Equal(t, ShapeCoinStandard, p.Shape())
	assert.Equal(t, []string{"0x1::aptos_coin::AptosCoin"}, p.EntryFunction().TypeArguments)

	// The returned arguments are a copy
	call := p.EntryFunction()
	call.Arguments[0] = uint64(2)
	assert.Equal(t, uint64(1), p.Arguments[0])

	p.CoinType = ""
	assert.NoError(t, p.Validate())
	assert.Empty(t, p.EntryFunction().TypeArguments)

	p.CoinType = "AptosCoin"
	assert.ErrorIs(t, p.Validate(), ErrMalformedTx)

	p.CoinType = ""
	p.Function = "pool::lend"
	assert.ErrorIs(t, p.Validate(), ErrMalformedTx)
}

func TestFungibleAssetPayload(t *testing.T) {
	p := FungibleAssetPayload{
		Sender:    "0x1",
		Function:  "0x1::pool::lend_fa",
		Metadata:  "0xa",
		Arguments: []any{"0", Address("0xa"), uint64(1)},
	}
	require.NoError(t, p.Validate())
	assert.Equal(t, ShapeFungibleAsset, p.Shape())
	assert.Empty(t, p.EntryFunction().TypeArguments)

	// A plain string is a move string, not the metadata object
	p.Arguments = []any{"0", "0xa", uint64(1)}
	assert.ErrorIs(t, p.Validate(), ErrMalformedTx)

	p.Metadata = "0x1::aptos_coin::AptosCoin"
	assert.ErrorIs(t, p.Validate(), ErrMalformedTx)
}

func TestIsTransactionHash(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	assert.True(t, IsTransactionHash(hash))
	assert.True(t, IsTransactionHash("0x"+strings.Repeat("AB", 32)))

	for _, in := range []string{"", "0x1", "0xabc", hash[2:], hash + "00", "0x" + strings.Repeat("zz", 32)} {
		assert.False(t, IsTransactionHash(in), in)
	}
	// A short account address is not a hash
	assert.True(t, IsAccountAddress("0x1"))
	assert.False(t, IsTransactionHash("0x1"))
}

func TestActionRequest_BaseUnits(t *testing.T) {
	amount, err := ParseAmount("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), ActionRequest{Amount: amount}.BaseUnits())
}

func TestActionRequest_Validate(t *testing.T) {
	amount, err := ParseAmount("10")
	require.NoError(t, err)

	req := ActionRequest{Protocol: ProtocolJoule, Action: ActionLend, WalletAddress: "0xabc", Amount: amount}
	assert.NoError(t, req.Validate())

	missing := req
	missing.Protocol = ""
	assert.ErrorIs(t, missing.Validate(), ErrInvalidRequest)

	missing = req
	missing.WalletAddress = ""
	assert.ErrorIs(t, missing.Validate(), ErrInvalidAddress)

	missing = req
	missing.Amount = amount.Neg()
	assert.ErrorIs(t, missing.Validate(), ErrInvalidAmount)

	assert.Equal(t, "fallback", req.Param("missing", "fallback"))
}
