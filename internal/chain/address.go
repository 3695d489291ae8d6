package chain

import (
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
)

// mustParseAddress parses a user-facing TON address string. Callers only
// ever pass addresses already validated at the Deal/Channel boundary
// (escrow_address, owner/advertiser payout addresses), so a parse failure
// here means upstream validation has a bug, not bad user input.
func mustParseAddress(addr string) *address.Address {
	a, err := address.ParseAddr(addr)
	if err != nil {
		panic("chain: invalid address reached the chain layer: " + err.Error())
	}
	return a
}

func nanoToCoins(nano int64) tlb.Coins {
	return tlb.FromNanoTONU(uint64(nano))
}
