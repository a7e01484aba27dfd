package ethereum

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"github.com/prysmaticlabs/go-bitfield"
)

// newSyncCommitteeBits interprets raw participation bits for a committee of
// the given size.
func newSyncCommitteeBits(bz []byte, size uint64) (bitfield.Bitfield, error) {
	var bits bitfield.Bitfield
	switch size {
	case 32:
		bits = bitfield.Bitvector32(bz)
	case 64:
		bits = bitfield.Bitvector64(bz)
	case 128:
		bits = bitfield.Bitvector128(bz)
	case 256:
		bits = bitfield.Bitvector256(bz)
	case 512:
		bits = bitfield.Bitvector512(bz)
	default:
		return nil, fmt.Errorf("unsupported sync committee size %d", size)
	}

	if uint64(len(bz)) != size/8 {
		return nil, fmt.Errorf("sync committee bits must be %d bytes, got %d", size/8, len(bz))
	}

	return bits, nil
}

// participantPubkeys returns the public keys of the committee members whose
// participation bit is set.
func (sc SyncCommittee) participantPubkeys(bits bitfield.Bitfield) [][]byte {
	pubkeys := make([][]byte, 0, bits.Count())
	for i, pubkey := range sc.Pubkeys {
		if bits.BitAt(uint64(i)) {
			pubkeys = append(pubkeys, pubkey)
		}
	}
	return pubkeys
}

// ValidateBasic checks the committee shape against the expected size.
func (sc SyncCommittee) ValidateBasic(size uint64) error {
	if uint64(len(sc.Pubkeys)) != size {
		return errorsmod.Wrapf(ErrInvalidSyncCommittee, "expected %d pubkeys, got %d", size, len(sc.Pubkeys))
	}
	if len(sc.AggregatePubkey) != blsPubkeyLength {
		return errorsmod.Wrapf(ErrInvalidSyncCommittee, "aggregate pubkey has length %d", len(sc.AggregatePubkey))
	}
	return nil
}
