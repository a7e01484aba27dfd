package testing

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
)

// sparseTree is a binary merkle tree given by its non zero leaves, keyed by
// generalized index. Subtrees without leaves hash to zero.
type sparseTree map[uint64][32]byte

func (t sparseTree) hasLeafBelow(gindex uint64) bool {
	depth := beacon.FloorLog2(gindex)
	for leaf := range t {
		leafDepth := beacon.FloorLog2(leaf)
		if leafDepth >= depth && leaf>>(leafDepth-depth) == gindex {
			return true
		}
	}
	return false
}

func (t sparseTree) node(gindex uint64) [32]byte {
	if leaf, ok := t[gindex]; ok {
		return leaf
	}
	if !t.hasLeafBelow(gindex) {
		return [32]byte{}
	}
	return beacon.HashPair(t.node(2*gindex), t.node(2*gindex+1))
}

func (t sparseTree) root() common.Hash {
	return t.node(1)
}

// branch returns the siblings of gindex from the leaf upwards.
func (t sparseTree) branch(gindex uint64) []common.Hash {
	var branch []common.Hash
	for g := gindex; g > 1; g /= 2 {
		branch = append(branch, t.node(g^1))
	}
	return branch
}
