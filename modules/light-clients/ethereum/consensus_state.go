package ethereum

import (
	"math"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/ethereum/go-ethereum/common"
)

// ConsensusState is the trusted snapshot of a finalized slot. StorageRoot is
// the root of the IBC contract storage, the commitment root for proofs.
type ConsensusState struct {
	Slot                 uint64      `json:"slot"`
	StateRoot            common.Hash `json:"state_root"`
	StorageRoot          common.Hash `json:"storage_root"`
	Timestamp            uint64      `json:"timestamp"`
	CurrentSyncCommittee common.Hash `json:"current_sync_committee"`
	NextSyncCommittee    common.Hash `json:"next_sync_committee"`
}

// GetTime returns the block time of the consensus state.
func (cs ConsensusState) GetTime() time.Time {
	return time.Unix(int64(cs.Timestamp), 0).UTC()
}

// GetTimestamp returns the block time in nanoseconds.
func (cs ConsensusState) GetTimestamp() uint64 {
	return uint64(cs.GetTime().UnixNano())
}

// HasNextSyncCommittee reports whether the committee of the following period is known.
func (cs ConsensusState) HasNextSyncCommittee() bool {
	return cs.NextSyncCommittee != (common.Hash{})
}

// maxTimestamp is the latest block time in seconds whose nanosecond form fits in an int64.
const maxTimestamp = math.MaxInt64 / uint64(time.Second)

// conflicts reports whether other commits to different roots or trust than cs.
// A next sync committee known to only one of them is not a conflict, updates
// finalizing the same slot may or may not carry it.
func (cs ConsensusState) conflicts(other ConsensusState) bool {
	if cs.Slot != other.Slot ||
		cs.StateRoot != other.StateRoot ||
		cs.StorageRoot != other.StorageRoot ||
		cs.Timestamp != other.Timestamp ||
		cs.CurrentSyncCommittee != other.CurrentSyncCommittee {
		return true
	}

	return cs.HasNextSyncCommittee() && other.HasNextSyncCommittee() && cs.NextSyncCommittee != other.NextSyncCommittee
}

// ValidateBasic defines a basic validation for the ethereum consensus state.
func (cs ConsensusState) ValidateBasic() error {
	if cs.StateRoot == (common.Hash{}) {
		return errorsmod.Wrap(ErrInvalidConsensusState, "state root cannot be empty")
	}
	if cs.StorageRoot == (common.Hash{}) {
		return errorsmod.Wrap(ErrInvalidConsensusState, "storage root cannot be empty")
	}
	if cs.Timestamp == 0 {
		return errorsmod.Wrap(ErrInvalidConsensusState, "timestamp cannot be zero")
	}
	if cs.Timestamp > maxTimestamp {
		return errorsmod.Wrapf(ErrInvalidConsensusState, "timestamp %d exceeds maximum %d", cs.Timestamp, maxTimestamp)
	}
	if cs.CurrentSyncCommittee == (common.Hash{}) {
		return errorsmod.Wrap(ErrInvalidConsensusState, "current sync committee cannot be empty")
	}
	return nil
}
