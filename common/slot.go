package common

import (
	"math/big"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

const (
	// NumSlots is the number of slots contested in every round
	NumSlots = 12
	// MaxWordLen is the maximum length in bytes of the content of a slot
	MaxWordLen = 22
	// WordSeparator joins the slot contents into a single text, so it can't
	// be part of a word
	WordSeparator = " "
)

// SlotIdx identifies a slot inside a round
type SlotIdx uint8

// Slot represents one of the content positions of a round
type Slot struct {
	Content string            `json:"content"`
	Owner   ethCommon.Address `json:"owner"`
	// HighestCumulative is the highest cumulative total that any single
	// player has reached on this slot in the round
	HighestCumulative *big.Int `json:"highestCumulative"`
}

// NewSlots returns the empty slots of a new round
func NewSlots() [NumSlots]Slot {
	var slots [NumSlots]Slot
	for i := range slots {
		slots[i].HighestCumulative = big.NewInt(0)
	}
	return slots
}

// HasOwner returns true if someone holds the slot
func (s *Slot) HasOwner() bool {
	return s.Owner != EmptyAddr
}

// Copy returns a deep copy of the slot
func (s *Slot) Copy() Slot {
	sCpy := *s
	sCpy.HighestCumulative = CopyBigInt(s.HighestCumulative)
	return sCpy
}

// JoinSlots joins the contents of the non-empty slots, in order, into a
// single text
func JoinSlots(slots []Slot) string {
	words := make([]string, 0, len(slots))
	for i := range slots {
		if slots[i].Content != "" {
			words = append(words, slots[i].Content)
		}
	}
	return strings.Join(words, WordSeparator)
}
