package v3

// AlgebraTreeReader abstracts the 3-level Algebra tick tree RPC reads
// (root word, second-layer words, leaf tick tables), per spec.md §4.4:
// "root (u32, 32 bits) -> second layer (256-bit words, indexed by
// signed 16-bit) -> leaf tick-table". Implementations back this with
// the chain transport (C1); LoadAlgebraTicks is pure given a reader.
type AlgebraTreeReader interface {
	// RootWord returns the 32-bit root bitmap.
	RootWord() (uint32, error)
	// SecondLayerWord returns the 256-bit second-layer word at index
	// wordIndex (signed 16-bit in the reference contract).
	SecondLayerWord(wordIndex int16) (word [4]uint64, err error)
	// LeafTicks returns the initialized tick indices within the leaf
	// word identified by (wordIndex, bitPosition).
	LeafTicks(wordIndex int16, bitPosition uint8) ([]int32, error)
	// TickByIndex fetches a single tick's net/gross liquidity.
	TickByIndex(index int32) (Tick, error)
}

// LoadAlgebraTicks walks the tree top-down (root -> second layer ->
// leaf) and enumerates every initialized tick index, storing it in the
// same ordered TickMap used by Uniswap-style pools — spec.md §9's
// "unifying the downstream math" design note.
func LoadAlgebraTicks(reader AlgebraTreeReader) (*TickMap, error) {
	out := NewTickMap()

	root, err := reader.RootWord()
	if err != nil {
		return nil, err
	}
	for bit := 0; bit < 32; bit++ {
		if root&(1<<uint(bit)) == 0 {
			continue
		}
		wordIndex := int16(bit) - 16
		word, err := reader.SecondLayerWord(wordIndex)
		if err != nil {
			return nil, err
		}
		for limb := 0; limb < 4; limb++ {
			v := word[limb]
			for bitPos := 0; bitPos < 64; bitPos++ {
				if v&(1<<uint(bitPos)) == 0 {
					continue
				}
				globalBit := uint8(limb*64 + bitPos)
				indices, err := reader.LeafTicks(wordIndex, globalBit)
				if err != nil {
					return nil, err
				}
				for _, idx := range indices {
					t, err := reader.TickByIndex(idx)
					if err != nil {
						return nil, err
					}
					if t.LiquidityGross.IsZero() {
						continue
					}
					out.Upsert(idx, t.LiquidityNet.abs, t.LiquidityNet.neg, t.LiquidityGross, false)
				}
			}
		}
	}
	return out, nil
}
