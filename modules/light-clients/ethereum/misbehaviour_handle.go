package ethereum

import (
	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
)

// CheckForMisbehaviour detects duplicate height misbehaviour and time violation misbehaviour
// in a submitted Header message and verifies the correctness of a submitted Misbehaviour ClientMessage.
// The message is assumed to have passed VerifyClientMessage.
func (cs ClientState) CheckForMisbehaviour(clientStore storetypes.KVStore, clientMsg ClientMessage) MisbehaviourVerdict {
	switch msg := clientMsg.(type) {
	case *Header:
		trustedConsState, err := GetConsensusState(clientStore, msg.TrustedSyncCommittee.TrustedHeight)
		if err != nil {
			return MisbehaviourVerdict{}
		}

		consState, err := cs.consensusStateFromHeader(trustedConsState, msg)
		if err != nil {
			return MisbehaviourVerdict{}
		}

		height := msg.GetHeight()
		return DetectMisbehaviour(storedConsensusStates(clientStore, height), height, consState)
	case *Misbehaviour:
		verdict, err := cs.misbehaviourVerdict(clientStore, msg)
		if err != nil {
			return MisbehaviourVerdict{}
		}
		return verdict
	}

	return MisbehaviourVerdict{}
}

// verifyMisbehaviour determines whether both updates of the misbehaviour
// verify against the trusted sync committee and conflict with each other.
func (cs ClientState) verifyMisbehaviour(clientStore storetypes.KVStore, env hostEnv, misbehaviour *Misbehaviour) error {
	if err := cs.checkActive(clientStore, env.Time); err != nil {
		return err
	}

	if err := misbehaviour.ValidateBasic(); err != nil {
		return err
	}

	if _, err := cs.trustedConsensusState(clientStore, env, misbehaviour.TrustedSyncCommittee.TrustedHeight); err != nil {
		return err
	}

	verdict, err := cs.misbehaviourVerdict(clientStore, misbehaviour)
	if err != nil {
		return err
	}

	if !verdict.Found() {
		return errorsmod.Wrap(ErrInvalidMisbehaviour, "updates finalize consistent headers")
	}

	return nil
}

// misbehaviourVerdict verifies both updates and compares what they finalize.
func (cs ClientState) misbehaviourVerdict(clientStore storetypes.KVStore, misbehaviour *Misbehaviour) (MisbehaviourVerdict, error) {
	trustedHeight := misbehaviour.TrustedSyncCommittee.TrustedHeight
	trustedConsState, err := GetConsensusState(clientStore, trustedHeight)
	if err != nil {
		return MisbehaviourVerdict{}, errorsmod.Wrapf(err, "could not get trusted consensus state for trusted height %s", trustedHeight)
	}

	one, err := cs.finalizedCandidate(trustedConsState, misbehaviour.TrustedSyncCommittee, misbehaviour.UpdateOne)
	if err != nil {
		return MisbehaviourVerdict{}, errorsmod.Wrapf(ErrInvalidMisbehaviour, "update 1: %v", err)
	}

	two, err := cs.finalizedCandidate(trustedConsState, misbehaviour.TrustedSyncCommittee, misbehaviour.UpdateTwo)
	if err != nil {
		return MisbehaviourVerdict{}, errorsmod.Wrapf(ErrInvalidMisbehaviour, "update 2: %v", err)
	}

	return detectConflictingUpdates(one, two), nil
}

func (cs ClientState) finalizedCandidate(trusted *ConsensusState, trustedCommittee TrustedSyncCommittee, update LightClientUpdate) (finalizedCandidate, error) {
	if err := cs.verifyLightClientUpdate(trusted, trustedCommittee, update); err != nil {
		return finalizedCandidate{}, err
	}

	consState, err := cs.consensusStateFromUpdate(trusted, update)
	if err != nil {
		return finalizedCandidate{}, err
	}

	beaconRoot, err := update.FinalizedHeader.Beacon.HashTreeRoot()
	if err != nil {
		return finalizedCandidate{}, err
	}

	return finalizedCandidate{
		height:     clienttypes.NewHeight(0, update.FinalizedHeader.Beacon.Slot),
		consState:  consState,
		beaconRoot: beaconRoot,
	}, nil
}

// UpdateStateOnMisbehaviour freezes the client. A client that is already
// frozen keeps its original frozen height.
// This method should only be called on misbehaviour as it does not perform any misbehaviour checks.
func (cs *ClientState) UpdateStateOnMisbehaviour(clientStore storetypes.KVStore, clientMsg ClientMessage) error {
	if cs.IsFrozen() {
		return nil
	}

	switch msg := clientMsg.(type) {
	case *Header:
		cs.FrozenHeight = msg.GetHeight()
	case *Misbehaviour:
		cs.FrozenHeight = msg.GetHeight()
	default:
		cs.FrozenHeight = cs.LatestHeight
	}

	return setClientState(clientStore, cs)
}
