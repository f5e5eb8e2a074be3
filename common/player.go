package common

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// Player is the state of a participant in a round
type Player struct {
	Addr ethCommon.Address `json:"addr"`
	// Spend is the total amount contributed across all slots in the round
	Spend *big.Int `json:"spend"`
	// OwnedSlots is the number of slots the player currently holds
	OwnedSlots int `json:"ownedSlots"`
}

// NewPlayer returns a player that has not spent anything yet
func NewPlayer(addr ethCommon.Address) *Player {
	return &Player{Addr: addr, Spend: big.NewInt(0)}
}

// Copy returns a deep copy of the player
func (p *Player) Copy() Player {
	pCpy := *p
	pCpy.Spend = CopyBigInt(p.Spend)
	return pCpy
}
