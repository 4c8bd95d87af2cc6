package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestMintTransferBurn(t *testing.T) {
	tok := New(addr(1), "RUPIAH", 6)
	alice := addr(10)
	bob := addr(11)

	require.NoError(t, tok.Mint(alice, big.NewInt(1_000_000)))
	require.Equal(t, big.NewInt(1_000_000), tok.TotalSupply())
	require.Equal(t, big.NewInt(1_000_000), tok.BalanceOf(alice))

	require.NoError(t, tok.Transfer(alice, bob, big.NewInt(400_000)))
	require.Equal(t, big.NewInt(600_000), tok.BalanceOf(alice))
	require.Equal(t, big.NewInt(400_000), tok.BalanceOf(bob))

	require.NoError(t, tok.Burn(bob, big.NewInt(400_000)))
	require.Equal(t, big.NewInt(600_000), tok.TotalSupply())
	require.Equal(t, big.NewInt(0), tok.BalanceOf(bob))
}

func TestTransferInsufficientBalance(t *testing.T) {
	tok := New(addr(1), "RUPIAH", 6)
	alice := addr(10)
	require.NoError(t, tok.Mint(alice, big.NewInt(100)))
	require.ErrorIs(t, tok.Transfer(alice, addr(11), big.NewInt(101)), ErrInsufficientFunds)
	require.Equal(t, big.NewInt(100), tok.BalanceOf(alice))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	tok := New(addr(1), "HUB", 18)
	alice := addr(10)
	custody := addr(20)
	require.NoError(t, tok.Mint(alice, big.NewInt(500)))

	require.ErrorIs(t, tok.TransferFrom(alice, custody, big.NewInt(100)), ErrAllowanceExceeded)

	require.NoError(t, tok.Approve(alice, big.NewInt(300)))
	require.NoError(t, tok.TransferFrom(alice, custody, big.NewInt(200)))
	require.Equal(t, big.NewInt(100), tok.Allowance(alice))
	require.Equal(t, big.NewInt(200), tok.BalanceOf(custody))

	require.ErrorIs(t, tok.TransferFrom(alice, custody, big.NewInt(101)), ErrAllowanceExceeded)
}

func TestValidation(t *testing.T) {
	tok := New(addr(1), "HUB", 18)
	alice := addr(10)
	require.NoError(t, tok.Mint(alice, big.NewInt(10)))

	require.ErrorIs(t, tok.Transfer([20]byte{}, alice, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, tok.Transfer(alice, [20]byte{}, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, tok.Transfer(alice, addr(11), nil), ErrAmountInvalid)
	require.ErrorIs(t, tok.Transfer(alice, addr(11), big.NewInt(0)), ErrAmountInvalid)
	require.ErrorIs(t, tok.Mint([20]byte{}, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, tok.Burn(alice, big.NewInt(-1)), ErrAmountInvalid)
	require.ErrorIs(t, tok.Burn(alice, big.NewInt(11)), ErrInsufficientFunds)
	require.ErrorIs(t, tok.Approve(alice, big.NewInt(-1)), ErrAmountInvalid)
}

func TestDirectoryResolvesTokens(t *testing.T) {
	dir := NewDirectory()
	hub := New(addr(1), "HUB", 18)
	dir.Register(hub)

	got, ok := dir.Token(addr(1))
	require.True(t, ok)
	require.Equal(t, hub.Address(), got.Address())

	_, ok = dir.Token(addr(2))
	require.False(t, ok)
}
