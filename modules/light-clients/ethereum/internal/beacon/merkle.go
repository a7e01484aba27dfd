package beacon

import (
	"github.com/prysmaticlabs/prysm/v5/crypto/hash"
)

// HashPair returns the sha256 digest of the concatenation of two nodes.
func HashPair(left, right [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return hash.Hash(buf[:])
}

// FloorLog2 returns the depth of a generalized index in its tree.
func FloorLog2(gindex uint64) uint64 {
	var depth uint64
	for gindex > 1 {
		gindex >>= 1
		depth++
	}
	return depth
}

// SubtreeIndex returns the position of a generalized index among the leaves
// at its depth.
func SubtreeIndex(gindex uint64) uint64 {
	return gindex % (uint64(1) << FloorLog2(gindex))
}

// IsValidMerkleBranch checks that leaf sits at index of a tree of the given
// depth whose root is root. The branch lists siblings from the leaf upwards.
func IsValidMerkleBranch(leaf [32]byte, branch [][32]byte, depth, index uint64, root [32]byte) bool {
	if uint64(len(branch)) != depth {
		return false
	}

	value := leaf
	for i := uint64(0); i < depth; i++ {
		if (index>>i)&1 == 1 {
			value = HashPair(branch[i], value)
		} else {
			value = HashPair(value, branch[i])
		}
	}

	return value == root
}

// VerifyGeneralizedIndex checks a branch for a leaf identified by its
// generalized index.
func VerifyGeneralizedIndex(leaf [32]byte, branch [][32]byte, gindex uint64, root [32]byte) bool {
	return IsValidMerkleBranch(leaf, branch, FloorLog2(gindex), SubtreeIndex(gindex), root)
}
