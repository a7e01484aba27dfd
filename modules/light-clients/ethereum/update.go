package ethereum

import (
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/mpt"
)

// hostEnv is the view of the host chain an operation runs under.
type hostEnv struct {
	Time   time.Time
	Height clienttypes.Height
}

func (env hostEnv) timestamp() uint64 {
	return uint64(env.Time.UnixNano())
}

func timeFromNanos(ns uint64) time.Time {
	return time.Unix(0, int64(ns)).UTC()
}

// VerifyClientMessage checks if the clientMessage is of type Header or Misbehaviour and verifies the message
func (cs *ClientState) VerifyClientMessage(clientStore storetypes.KVStore, env hostEnv, clientMsg ClientMessage) error {
	switch msg := clientMsg.(type) {
	case *Header:
		return cs.verifyHeader(clientStore, env, msg)
	case *Misbehaviour:
		return cs.verifyMisbehaviour(clientStore, env, msg)
	default:
		return errorsmod.Wrapf(ErrInvalidHeader, "unsupported client message %T", clientMsg)
	}
}

// verifyHeader returns an error if:
// - the client is not active
// - the header is superseded by a later trusted height
// - the trusted consensus state is unknown or outside the trusting period
// - the sync protocol update does not verify against the trusted sync committee
// - the account proof does not bind the storage root to the finalized execution state root
// - the header timestamp is not after the trusted timestamp or lies beyond the clock drift
func (cs *ClientState) verifyHeader(clientStore storetypes.KVStore, env hostEnv, header *Header) error {
	_, err := cs.checkHeader(clientStore, env, header)
	return err
}

// checkHeader performs the checks of verifyHeader and returns the verified
// consensus state the header attests to.
func (cs *ClientState) checkHeader(clientStore storetypes.KVStore, env hostEnv, header *Header) (*ConsensusState, error) {
	if err := cs.checkActive(clientStore, env.Time); err != nil {
		return nil, err
	}

	if err := header.ValidateBasic(); err != nil {
		return nil, err
	}

	height := header.GetHeight()
	if height.LT(cs.LatestHeight) {
		if _, err := GetConsensusState(clientStore, height); err != nil {
			if !errors.Is(err, ErrConsensusStateNotFound) {
				return nil, err
			}
			return nil, errorsmod.Wrapf(ErrStaleHeader, "header height %s is below latest height %s", height, cs.LatestHeight)
		}
	}

	currentSlot := cs.computeSlotAtTime(env.Time.Add(cs.maxClockDrift()))
	if header.ConsensusUpdate.SignatureSlot > currentSlot {
		return nil, errorsmod.Wrapf(
			ErrInvalidHeader,
			"signature slot %d is ahead of current slot %d", header.ConsensusUpdate.SignatureSlot, currentSlot,
		)
	}

	trustedConsState, err := cs.trustedConsensusState(clientStore, env, header.TrustedSyncCommittee.TrustedHeight)
	if err != nil {
		return nil, err
	}

	if err := cs.verifyHeaderTimestamp(env, trustedConsState, header); err != nil {
		return nil, err
	}

	return cs.consensusStateFromHeader(trustedConsState, header)
}

// trustedConsensusState returns the consensus state at trustedHeight provided
// it is still within the trusting period.
func (cs ClientState) trustedConsensusState(clientStore storetypes.KVStore, env hostEnv, trustedHeight clienttypes.Height) (*ConsensusState, error) {
	trustedConsState, err := GetConsensusState(clientStore, trustedHeight)
	if err != nil {
		return nil, errorsmod.Wrapf(err, "could not get trusted consensus state for trusted height %s", trustedHeight)
	}

	if cs.IsExpired(trustedConsState.GetTime(), env.Time) {
		return nil, errorsmod.Wrapf(
			ErrInvalidHeader,
			"trusted consensus state at %s is outside the trusting period (%s since %s)",
			trustedHeight, cs.trustingPeriod(), trustedConsState.GetTime(),
		)
	}

	return trustedConsState, nil
}

func (cs ClientState) verifyHeaderTimestamp(env hostEnv, trusted *ConsensusState, header *Header) error {
	timestamp := header.ConsensusUpdate.FinalizedHeader.Execution.Timestamp

	if header.ConsensusUpdate.FinalizedHeader.Beacon.Slot > trusted.Slot && timestamp <= trusted.Timestamp {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"header timestamp %d is not after trusted timestamp %d", timestamp, trusted.Timestamp,
		)
	}

	headerTime := time.Unix(int64(timestamp), 0)
	if headerTime.After(env.Time.Add(cs.maxClockDrift())) {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"header time %s is beyond host time %s plus max clock drift %s", headerTime, env.Time, cs.maxClockDrift(),
		)
	}

	return nil
}

// consensusStateFromHeader verifies the header against the trusted
// consensus state and returns the consensus state it attests to.
func (cs ClientState) consensusStateFromHeader(trusted *ConsensusState, header *Header) (*ConsensusState, error) {
	update := header.ConsensusUpdate

	if err := cs.verifyLightClientUpdate(trusted, header.TrustedSyncCommittee, update); err != nil {
		return nil, err
	}

	finalized := update.FinalizedHeader
	account, err := mpt.VerifyAccount(finalized.Execution.StateRoot, cs.IbcContractAddress, toProofNodes(header.AccountUpdate.AccountProof.Proof))
	if err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidHeader, "invalid account proof: %v", err)
	}
	if account == nil {
		return nil, errorsmod.Wrapf(ErrInvalidHeader, "ibc contract %s does not exist at slot %d", cs.IbcContractAddress, finalized.Beacon.Slot)
	}
	if account.Root != header.AccountUpdate.AccountProof.StorageRoot {
		return nil, errorsmod.Wrapf(
			ErrInvalidHeader,
			"storage root mismatch: proven %s, claimed %s", account.Root, header.AccountUpdate.AccountProof.StorageRoot,
		)
	}

	consState, err := cs.consensusStateFromUpdate(trusted, update)
	if err != nil {
		return nil, err
	}
	consState.StorageRoot = header.AccountUpdate.AccountProof.StorageRoot

	if err := consState.ValidateBasic(); err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidHeader, "invalid consensus state: %v", err)
	}

	return consState, nil
}

// consensusStateFromUpdate derives the consensus state of the finalized
// header of a verified update. The storage root is left empty.
func (cs ClientState) consensusStateFromUpdate(trusted *ConsensusState, update LightClientUpdate) (*ConsensusState, error) {
	finalized := update.FinalizedHeader
	trustedPeriod := cs.computeSyncCommitteePeriodAtSlot(trusted.Slot)
	finalizedPeriod := cs.computeSyncCommitteePeriodAtSlot(finalized.Beacon.Slot)

	var nextSyncCommittee common.Hash
	if update.NextSyncCommittee != nil {
		root, err := update.NextSyncCommittee.HashTreeRoot()
		if err != nil {
			return nil, err
		}
		nextSyncCommittee = root
	}

	consState := &ConsensusState{
		Slot:      finalized.Beacon.Slot,
		StateRoot: finalized.Execution.StateRoot,
		Timestamp: finalized.Execution.Timestamp,
	}

	switch finalizedPeriod {
	case trustedPeriod:
		consState.CurrentSyncCommittee = trusted.CurrentSyncCommittee
		consState.NextSyncCommittee = trusted.NextSyncCommittee
		if update.NextSyncCommittee != nil {
			if trusted.HasNextSyncCommittee() && trusted.NextSyncCommittee != nextSyncCommittee {
				return nil, errorsmod.Wrap(ErrInvalidHeader, "next sync committee does not match the trusted next sync committee")
			}
			consState.NextSyncCommittee = nextSyncCommittee
		}
	case trustedPeriod + 1:
		if !trusted.HasNextSyncCommittee() {
			return nil, errorsmod.Wrap(ErrInvalidHeader, "cannot advance a sync committee period without a trusted next sync committee")
		}
		consState.CurrentSyncCommittee = trusted.NextSyncCommittee
		consState.NextSyncCommittee = nextSyncCommittee
	default:
		return nil, errorsmod.Wrapf(
			ErrInvalidHeader,
			"finalized period %d must equal trusted period %d or the one after", finalizedPeriod, trustedPeriod,
		)
	}

	return consState, nil
}

// verifyLightClientUpdate validates a sync protocol update against the
// trusted consensus state and the sync committee supplied for it.
func (cs ClientState) verifyLightClientUpdate(trusted *ConsensusState, trustedCommittee TrustedSyncCommittee, update LightClientUpdate) error {
	attested := update.AttestedHeader
	finalized := update.FinalizedHeader

	// committee
	committee, isNext := trustedCommittee.committee()
	if committee == nil {
		return errorsmod.Wrap(ErrInvalidHeader, "no sync committee supplied")
	}
	if err := committee.ValidateBasic(cs.SyncCommitteeSize); err != nil {
		return errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}
	committeeRoot, err := committee.HashTreeRoot()
	if err != nil {
		return errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}

	storePeriod := cs.computeSyncCommitteePeriodAtSlot(trusted.Slot)
	signaturePeriod := cs.computeSyncCommitteePeriodAtSlot(update.SignatureSlot)
	if isNext {
		if !trusted.HasNextSyncCommittee() || committeeRoot != trusted.NextSyncCommittee {
			return errorsmod.Wrap(ErrInvalidHeader, "supplied next sync committee does not match the trusted next sync committee")
		}
		if signaturePeriod != storePeriod+1 {
			return errorsmod.Wrapf(ErrInvalidHeader, "next sync committee cannot sign in period %d, trusted period is %d", signaturePeriod, storePeriod)
		}
	} else {
		if committeeRoot != trusted.CurrentSyncCommittee {
			return errorsmod.Wrap(ErrInvalidHeader, "supplied current sync committee does not match the trusted current sync committee")
		}
		if signaturePeriod != storePeriod {
			return errorsmod.Wrapf(ErrInvalidHeader, "current sync committee cannot sign in period %d, trusted period is %d", signaturePeriod, storePeriod)
		}
	}

	// participation
	bits, err := newSyncCommitteeBits(update.SyncAggregate.SyncCommitteeBits, cs.SyncCommitteeSize)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}
	participants := bits.Count()
	if participants < cs.MinSyncCommitteeParticipants {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"insufficient sync committee participants: %d < %d", participants, cs.MinSyncCommitteeParticipants,
		)
	}
	if participants*3 < cs.SyncCommitteeSize*2 {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"sync committee participation %d/%d is below the supermajority", participants, cs.SyncCommitteeSize,
		)
	}

	// slots
	if !(update.SignatureSlot > attested.Beacon.Slot && attested.Beacon.Slot >= finalized.Beacon.Slot) {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"invalid slot ordering: signature slot %d, attested slot %d, finalized slot %d",
			update.SignatureSlot, attested.Beacon.Slot, finalized.Beacon.Slot,
		)
	}
	if finalized.Beacon.Slot < trusted.Slot {
		return errorsmod.Wrapf(ErrInvalidHeader, "finalized slot %d precedes trusted slot %d", finalized.Beacon.Slot, trusted.Slot)
	}

	// light client headers
	if err := cs.verifyLightClientHeader(attested); err != nil {
		return errorsmod.Wrapf(err, "attested header")
	}
	if err := cs.verifyLightClientHeader(finalized); err != nil {
		return errorsmod.Wrapf(err, "finalized header")
	}
	if expected := cs.computeTimestampAtSlot(finalized.Beacon.Slot); finalized.Execution.Timestamp != expected {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"finalized execution timestamp %d does not match slot time %d", finalized.Execution.Timestamp, expected,
		)
	}

	// finality
	attestedFork := cs.forkAtSlot(attested.Beacon.Slot)
	finalizedRoot, err := finalized.Beacon.HashTreeRoot()
	if err != nil {
		return errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}
	if !beacon.VerifyGeneralizedIndex(finalizedRoot, toBranch(update.FinalityBranch), beacon.FinalizedRootGindexAt(attestedFork), attested.Beacon.StateRoot) {
		return errorsmod.Wrap(ErrInvalidHeader, "invalid finality branch")
	}

	// next sync committee
	if update.NextSyncCommittee != nil {
		if err := update.NextSyncCommittee.ValidateBasic(cs.SyncCommitteeSize); err != nil {
			return errorsmod.Wrap(ErrInvalidHeader, err.Error())
		}
		if cs.computeSyncCommitteePeriodAtSlot(attested.Beacon.Slot) != cs.computeSyncCommitteePeriodAtSlot(finalized.Beacon.Slot) {
			return errorsmod.Wrap(ErrInvalidHeader, "next sync committee must be attested in the finalized period")
		}
		nextRoot, err := update.NextSyncCommittee.HashTreeRoot()
		if err != nil {
			return errorsmod.Wrap(ErrInvalidHeader, err.Error())
		}
		if !beacon.VerifyGeneralizedIndex(nextRoot, toBranch(update.NextSyncCommitteeBranch), beacon.NextSyncCommitteeGindexAt(attestedFork), attested.Beacon.StateRoot) {
			return errorsmod.Wrap(ErrInvalidHeader, "invalid next sync committee branch")
		}
	} else if len(update.NextSyncCommitteeBranch) != 0 {
		return errorsmod.Wrap(ErrInvalidHeader, "next sync committee branch without next sync committee")
	}

	// signature
	if len(update.SyncAggregate.SyncCommitteeSignature) != blsSignatureLength {
		return errorsmod.Wrapf(ErrInvalidHeader, "sync committee signature must be %d bytes", blsSignatureLength)
	}
	forkVersionSlot := update.SignatureSlot
	if forkVersionSlot > 0 {
		forkVersionSlot--
	}
	forkVersion := cs.ForkParameters.ForkVersionAtEpoch(cs.computeEpochAtSlot(forkVersionSlot))
	domain := beacon.ComputeDomain(beacon.DomainSyncCommittee, forkVersion, cs.GenesisValidatorsRoot)
	attestedRoot, err := attested.Beacon.HashTreeRoot()
	if err != nil {
		return errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}
	signingRoot := beacon.ComputeSigningRoot(attestedRoot, domain)

	if err := beacon.FastAggregateVerify(committee.participantPubkeys(bits), signingRoot, update.SyncAggregate.SyncCommitteeSignature); err != nil {
		return errorsmod.Wrap(ErrInvalidHeader, err.Error())
	}

	return nil
}

// verifyLightClientHeader checks the execution payload branch of a header.
// Execution headers are only carried from Capella onwards.
func (cs ClientState) verifyLightClientHeader(header LightClientHeader) error {
	fork := cs.forkAtSlot(header.Beacon.Slot)
	if fork < beacon.Capella {
		return errorsmod.Wrapf(ErrInvalidHeader, "slot %d precedes capella", header.Beacon.Slot)
	}

	executionRoot, err := header.Execution.HashTreeRoot(fork)
	if err != nil {
		return err
	}

	if !beacon.VerifyGeneralizedIndex(executionRoot, toBranch(header.ExecutionBranch), beacon.ExecutionPayloadGindex, header.Beacon.BodyRoot) {
		return errorsmod.Wrap(ErrInvalidHeader, "invalid execution payload branch")
	}

	return nil
}

// UpdateState may be used to either create a consensus state for:
// - a future height greater than the latest client state height
// - a past height that was skipped during bisection
// If we are updating to a past height, a consensus state is created for that height to be persisted in client store
// If we are updating to a future height, the consensus state is created and the client state is updated to reflect
// the new latest height
// A consensus state matching an already stored one is a no-op unless it adds the next sync committee,
// and a conflicting one freezes the client.
// UpdateState must only be used to update within a single revision, thus header revision number and trusted height's revision
// number must be the same.
// UpdateState prunes the oldest consensus state if it is expired.
func (cs *ClientState) UpdateState(clientStore storetypes.KVStore, env hostEnv, header *Header) ([]clienttypes.Height, MisbehaviourVerdict, error) {
	consState, err := cs.checkHeader(clientStore, env, header)
	if err != nil {
		return nil, MisbehaviourVerdict{}, err
	}

	height := header.GetHeight()
	verdict := DetectMisbehaviour(storedConsensusStates(clientStore, height), height, consState)
	if verdict.Found() {
		cs.FrozenHeight = verdict.Height
		if err := setClientState(clientStore, cs); err != nil {
			return nil, verdict, err
		}
		return []clienttypes.Height{}, verdict, nil
	}

	if existing, err := GetConsensusState(clientStore, height); err == nil {
		if existing.HasNextSyncCommittee() || !consState.HasNextSyncCommittee() {
			// header is a duplicate
			return []clienttypes.Height{height}, verdict, nil
		}
		// the header adds the next sync committee, processed time and height are kept
		if err := setConsensusState(clientStore, consState, height); err != nil {
			return nil, verdict, err
		}
		return []clienttypes.Height{height}, verdict, nil
	}

	cs.pruneOldestConsensusState(clientStore, env.timestamp())

	if height.GT(cs.LatestHeight) {
		cs.LatestHeight = height
	}

	if err := setClientState(clientStore, cs); err != nil {
		return nil, verdict, err
	}
	if err := storeConsensusState(clientStore, consState, height, env.timestamp(), env.Height); err != nil {
		return nil, verdict, err
	}

	return []clienttypes.Height{height}, verdict, nil
}

func toProofNodes(proof []hexutil.Bytes) [][]byte {
	nodes := make([][]byte, len(proof))
	for i, node := range proof {
		nodes[i] = node
	}
	return nodes
}
