package ethereum

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
)

// MisbehaviourKind classifies conflicting evidence.
type MisbehaviourKind int

const (
	// MisbehaviourNone means the candidate is consistent with stored state.
	MisbehaviourNone MisbehaviourKind = iota
	// MisbehaviourFork means two different consensus states exist for one height.
	MisbehaviourFork
	// MisbehaviourTimeViolation means consensus states are not ordered by time.
	MisbehaviourTimeViolation
)

func (k MisbehaviourKind) String() string {
	switch k {
	case MisbehaviourNone:
		return "none"
	case MisbehaviourFork:
		return "fork"
	case MisbehaviourTimeViolation:
		return "time_violation"
	default:
		return fmt.Sprintf("misbehaviour(%d)", int(k))
	}
}

// MisbehaviourVerdict is the outcome of misbehaviour detection. Height is
// the height at which the conflict was observed.
type MisbehaviourVerdict struct {
	Kind   MisbehaviourKind
	Height clienttypes.Height
}

// Found reports whether the verdict proves misbehaviour.
func (v MisbehaviourVerdict) Found() bool {
	return v.Kind != MisbehaviourNone
}

// Err returns ErrMisbehaviourDetected describing the verdict, or nil if none was found.
func (v MisbehaviourVerdict) Err() error {
	if !v.Found() {
		return nil
	}
	return errorsmod.Wrapf(ErrMisbehaviourDetected, "%s at height %s", v.Kind, v.Height)
}

// NeighbourConsensusStates are the stored consensus states relevant to a
// candidate at some height: the one at that height and its closest
// neighbours. Absent entries are nil.
type NeighbourConsensusStates struct {
	Existing *ConsensusState
	Previous *ConsensusState
	Next     *ConsensusState
}

// storedConsensusStates reads the neighbours of height from the client store.
func storedConsensusStates(clientStore storetypes.KVStore, height clienttypes.Height) NeighbourConsensusStates {
	var stored NeighbourConsensusStates

	if existing, err := GetConsensusState(clientStore, height); err == nil {
		stored.Existing = existing
	}
	if prev, ok := GetPreviousConsensusState(clientStore, height); ok {
		stored.Previous = prev
	}
	if next, ok := GetNextConsensusState(clientStore, height); ok {
		stored.Next = next
	}

	return stored
}

// DetectMisbehaviour decides whether candidate, a verified consensus state
// for height, conflicts with stored consensus states.
//   - a conflicting consensus state already stored at height is a fork
//   - a timestamp not strictly between its neighbours' is a time violation
func DetectMisbehaviour(stored NeighbourConsensusStates, height clienttypes.Height, candidate *ConsensusState) MisbehaviourVerdict {
	if stored.Existing != nil {
		if stored.Existing.conflicts(*candidate) {
			return MisbehaviourVerdict{Kind: MisbehaviourFork, Height: height}
		}
		// the candidate was already accepted, so its neighbours were checked then
		return MisbehaviourVerdict{}
	}

	if stored.Previous != nil && stored.Previous.Timestamp >= candidate.Timestamp {
		return MisbehaviourVerdict{Kind: MisbehaviourTimeViolation, Height: height}
	}
	if stored.Next != nil && stored.Next.Timestamp <= candidate.Timestamp {
		return MisbehaviourVerdict{Kind: MisbehaviourTimeViolation, Height: height}
	}

	return MisbehaviourVerdict{}
}

// finalizedCandidate is the consensus state an update finalizes along with
// the root of the finalized beacon header.
type finalizedCandidate struct {
	height     clienttypes.Height
	consState  *ConsensusState
	beaconRoot [32]byte
}

// detectConflictingUpdates compares the headers finalized by the two updates
// of a misbehaviour.
func detectConflictingUpdates(one, two finalizedCandidate) MisbehaviourVerdict {
	if one.height.EQ(two.height) {
		if one.beaconRoot != two.beaconRoot || one.consState.conflicts(*two.consState) {
			return MisbehaviourVerdict{Kind: MisbehaviourFork, Height: one.height}
		}
		return MisbehaviourVerdict{}
	}

	lower, higher := one, two
	if two.height.LT(one.height) {
		lower, higher = two, one
	}

	if higher.consState.Timestamp <= lower.consState.Timestamp {
		return MisbehaviourVerdict{Kind: MisbehaviourTimeViolation, Height: higher.height}
	}

	return MisbehaviourVerdict{}
}
