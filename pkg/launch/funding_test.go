package launch

import (
	"context"
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/confirm"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

type fakeSender struct {
	txs []*solana.Transaction
}

func (s *fakeSender) BuildTransaction(_ context.Context, feePayer solana.PublicKey, tables map[solana.PublicKey]solana.PublicKeySlice, instrs ...solana.Instruction) (*solana.Transaction, error) {
	return txbuilder.Compile(solana.Hash{2}, feePayer, tables, instrs...)
}

func (s *fakeSender) SendAndConfirm(_ context.Context, tx *solana.Transaction) (solana.Signature, confirm.Outcome, error) {
	s.txs = append(s.txs, tx)
	return tx.Signatures[0], confirm.Outcome{Status: confirm.StatusConfirmed, Attempts: 1}, nil
}

func pubkeys(ks []wallet.Local) []solana.PublicKey {
	out := make([]solana.PublicKey, len(ks))
	for i, k := range ks {
		out[i] = k.PublicKey()
	}
	return out
}

func TestPlanFunding(t *testing.T) {
	snipers := pubkeys(keys(t, 4))
	plan, err := PlanFunding(snipers, 2*sol, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, plan, 4)

	var buys uint64
	for i, p := range plan {
		assert.Equal(t, snipers[i], p.Sniper)
		assert.Equal(t, p.Buy+wallet.SniperFeeReserve, p.Lamports)
		buys += p.Buy
	}
	assert.Equal(t, uint64(2*sol), buys)

	_, err = PlanFunding(snipers, 1000, nil)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestFundSnipers(t *testing.T) {
	chain := &fakeChain{balances: map[solana.PublicKey]uint64{}}
	sender := &fakeSender{}
	f := NewFunder(config.Default(), chain, sender, zerolog.Nop())
	funder := keys(t, 1)[0]
	snipers := pubkeys(keys(t, 2))
	plan := []Funding{
		{Sniper: snipers[0], Buy: sol, Lamports: sol + wallet.SniperFeeReserve},
		{Sniper: snipers[1], Buy: sol / 2, Lamports: sol/2 + wallet.SniperFeeReserve},
	}

	done, err := f.FundSnipers(context.Background(), funder, plan)
	require.NoError(t, err)
	require.Len(t, done, 2)
	require.Len(t, sender.txs, 2)

	for i, tx := range sender.txs {
		require.NoError(t, tx.VerifySignatures())
		msg := tx.Message
		assert.Equal(t, funder.PublicKey(), msg.AccountKeys[0])
		assert.Equal(t, done[i].Mixer, msg.AccountKeys[1], "mixer co-signs")
		assert.Equal(t, uint8(2), msg.Header.NumRequiredSignatures)
		assert.Contains(t, msg.AccountKeys, snipers[i])
		// create ATA, transfer, sync native, close into the sniper
		require.Len(t, msg.Instructions, 4)
		assert.Equal(t, constants.AssociatedTokenProgramID, msg.AccountKeys[msg.Instructions[0].ProgramIDIndex])
		assert.Equal(t, constants.TokenProgramID, msg.AccountKeys[msg.Instructions[3].ProgramIDIndex])
		assert.Equal(t, tx.Signatures[0], done[i].Signature)
		assert.False(t, done[i].Mixer.IsZero())
	}
	assert.NotEqual(t, done[0].Mixer, done[1].Mixer)
}

func TestFundSnipersChecksBalance(t *testing.T) {
	funder := keys(t, 1)[0]
	chain := &fakeChain{balances: map[solana.PublicKey]uint64{funder.PublicKey(): sol}}
	sender := &fakeSender{}
	f := NewFunder(config.Default(), chain, sender, zerolog.Nop())

	_, err := f.FundSnipers(context.Background(), funder, []Funding{{Sniper: solana.NewWallet().PublicKey(), Lamports: sol}})
	assert.True(t, types.IsKind(err, types.KindValidation))
	assert.Empty(t, sender.txs)

	_, err = f.FundSnipers(context.Background(), funder, nil)
	assert.ErrorIs(t, err, types.ErrNoWallets)
	_, err = f.FundSnipers(context.Background(), nil, nil)
	assert.ErrorIs(t, err, types.ErrNilSigner)
}
