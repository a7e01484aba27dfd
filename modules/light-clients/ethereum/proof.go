package ethereum

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	commitmenttypesv2 "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types/v2"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/mpt"
)

// StorageProof is the proof format accepted by membership verification: an
// Ethereum storage proof of a single slot of the IBC contract.
type StorageProof struct {
	Key   common.Hash     `json:"key"`
	Value common.Hash     `json:"value"`
	Proof []hexutil.Bytes `json:"proof"`
}

// decodeStorageProof decodes the JSON storage proof.
func decodeStorageProof(bz []byte) (*StorageProof, error) {
	if len(bz) == 0 {
		return nil, errorsmod.Wrap(ErrInvalidProof, "proof cannot be empty")
	}

	var proof StorageProof
	if err := decodeStrict(bz, &proof); err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidProof, "failed to decode storage proof: %v", err)
	}
	if len(proof.Proof) == 0 {
		return nil, errorsmod.Wrap(ErrInvalidProof, "storage proof has no nodes")
	}

	return &proof, nil
}

// Marshal returns the JSON encoding of the proof.
func (p StorageProof) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// commitmentPath joins the key path segments into the IBC commitment path.
func commitmentPath(path commitmenttypesv2.MerklePath) ([]byte, error) {
	if len(path.KeyPath) == 0 {
		return nil, errorsmod.Wrap(ErrInvalidProof, "merkle path cannot be empty")
	}
	return bytes.Join(path.KeyPath, nil), nil
}

// CommitmentWord returns the storage word the IBC contract keeps for a
// committed value. 32 byte values are stored as is, others as their keccak256 hash.
func CommitmentWord(value []byte) common.Hash {
	if len(value) == common.HashLength {
		return common.BytesToHash(value)
	}
	return crypto.Keccak256Hash(value)
}

// verifyStorage proves the word held at the commitment slot of path under root.
func (cs ClientState) verifyStorage(root common.Hash, path []byte, proof *StorageProof) (common.Hash, error) {
	slot := mpt.CommitmentSlot(path, cs.IbcCommitmentSlot)
	if proof.Key != slot {
		return common.Hash{}, errorsmod.Wrapf(ErrInvalidProof, "proof key %s does not match commitment slot %s", proof.Key, slot)
	}

	word, err := mpt.VerifyStorage(root, slot, toProofNodes(proof.Proof))
	switch {
	case err == nil:
		return word, nil
	case errors.Is(err, mpt.ErrProofMismatch):
		return common.Hash{}, errorsmod.Wrap(ErrVerificationFailed, err.Error())
	default:
		return common.Hash{}, errorsmod.Wrap(ErrInvalidProof, err.Error())
	}
}

// VerifyMembership is a generic proof verification method which verifies a proof of the existence of a value at a given CommitmentPath at the specified height.
// The caller is expected to construct the full CommitmentPath from a CommitmentPrefix and a standardized path (as defined in ICS 24).
// If a zero proof height is passed in, it will fail to retrieve the associated consensus state.
func (cs ClientState) VerifyMembership(
	clientStore storetypes.KVStore,
	env hostEnv,
	height clienttypes.Height,
	delayTimePeriod uint64,
	delayBlockPeriod uint64,
	proof []byte,
	path commitmenttypesv2.MerklePath,
	value []byte,
) error {
	if err := cs.checkActive(clientStore, env.Time); err != nil {
		return err
	}

	if cs.LatestHeight.LT(height) {
		return errorsmod.Wrapf(
			ErrConsensusStateNotFound,
			"client state height < proof height (%s < %s), please ensure the client has been updated", cs.LatestHeight, height,
		)
	}

	if err := verifyDelayPeriodPassed(clientStore, env, height, delayTimePeriod, delayBlockPeriod); err != nil {
		return err
	}

	if len(value) == 0 {
		return errorsmod.Wrap(ErrInvalidProof, "value cannot be empty")
	}

	storageProof, err := decodeStorageProof(proof)
	if err != nil {
		return err
	}

	key, err := commitmentPath(path)
	if err != nil {
		return err
	}

	consensusState, err := GetConsensusState(clientStore, height)
	if err != nil {
		return errorsmod.Wrap(err, "please ensure the proof was constructed against a height that exists on the client")
	}

	expected := CommitmentWord(value)
	if storageProof.Value != expected {
		return errorsmod.Wrapf(ErrVerificationFailed, "proof value %s does not match commitment %s", storageProof.Value, expected)
	}

	word, err := cs.verifyStorage(consensusState.StorageRoot, key, storageProof)
	if err != nil {
		return err
	}

	if word != expected {
		return errorsmod.Wrapf(ErrVerificationFailed, "stored commitment %s does not match %s", word, expected)
	}

	return nil
}

// VerifyNonMembership is a generic proof verification method which verifies the absence of a given CommitmentPath at a specified height.
// The caller is expected to construct the full CommitmentPath from a CommitmentPrefix and a standardized path (as defined in ICS 24).
// If a zero proof height is passed in, it will fail to retrieve the associated consensus state.
func (cs ClientState) VerifyNonMembership(
	clientStore storetypes.KVStore,
	env hostEnv,
	height clienttypes.Height,
	delayTimePeriod uint64,
	delayBlockPeriod uint64,
	proof []byte,
	path commitmenttypesv2.MerklePath,
) error {
	if err := cs.checkActive(clientStore, env.Time); err != nil {
		return err
	}

	if cs.LatestHeight.LT(height) {
		return errorsmod.Wrapf(
			ErrConsensusStateNotFound,
			"client state height < proof height (%s < %s), please ensure the client has been updated", cs.LatestHeight, height,
		)
	}

	if err := verifyDelayPeriodPassed(clientStore, env, height, delayTimePeriod, delayBlockPeriod); err != nil {
		return err
	}

	storageProof, err := decodeStorageProof(proof)
	if err != nil {
		return err
	}

	key, err := commitmentPath(path)
	if err != nil {
		return err
	}

	consensusState, err := GetConsensusState(clientStore, height)
	if err != nil {
		return errorsmod.Wrap(err, "please ensure the proof was constructed against a height that exists on the client")
	}

	if storageProof.Value != (common.Hash{}) {
		return errorsmod.Wrapf(ErrVerificationFailed, "proof value %s is not empty", storageProof.Value)
	}

	word, err := cs.verifyStorage(consensusState.StorageRoot, key, storageProof)
	if err != nil {
		return err
	}

	if word != (common.Hash{}) {
		return errorsmod.Wrapf(ErrVerificationFailed, "commitment %s exists", word)
	}

	return nil
}

// verifyDelayPeriodPassed will ensure that at least delayTimePeriod amount of time and delayBlockPeriod number of blocks have passed
// since consensus state was submitted before allowing verification to continue.
func verifyDelayPeriodPassed(store storetypes.KVStore, env hostEnv, proofHeight clienttypes.Height, delayTimePeriod, delayBlockPeriod uint64) error {
	if delayTimePeriod != 0 {
		// check that executing chain's timestamp has passed consensusState's processed time + delay time period
		processedTime, ok := GetProcessedTime(store, proofHeight)
		if !ok {
			return errorsmod.Wrapf(ErrProcessedTimeNotFound, "processed time not found for height: %s", proofHeight)
		}

		currentTimestamp := env.timestamp()
		if delayTimePeriod > math.MaxUint64-processedTime {
			return errorsmod.Wrapf(ErrDelayPeriodNotElapsed, "delay time period %d overflows processed time %d", delayTimePeriod, processedTime)
		}
		validTime := processedTime + delayTimePeriod

		// NOTE: delay time period is inclusive, so if currentTimestamp is validTime, then we return no error
		if currentTimestamp < validTime {
			return errorsmod.Wrapf(ErrDelayPeriodNotElapsed, "cannot verify packet until time: %d, current time: %d",
				validTime, currentTimestamp)
		}
	}

	if delayBlockPeriod != 0 {
		// check that executing chain's height has passed consensusState's processed height + delay block period
		processedHeight, ok := GetProcessedHeight(store, proofHeight)
		if !ok {
			return errorsmod.Wrapf(ErrProcessedHeightNotFound, "processed height not found for height: %s", proofHeight)
		}

		currentHeight := env.Height
		if delayBlockPeriod > math.MaxUint64-processedHeight.GetRevisionHeight() {
			return errorsmod.Wrapf(ErrDelayPeriodNotElapsed, "delay block period %d overflows processed height %s", delayBlockPeriod, processedHeight)
		}
		validHeight := clienttypes.NewHeight(processedHeight.GetRevisionNumber(), processedHeight.GetRevisionHeight()+delayBlockPeriod)

		// NOTE: delay block period is inclusive, so if currentHeight is validHeight, then we return no error
		if currentHeight.LT(validHeight) {
			return errorsmod.Wrapf(ErrDelayPeriodNotElapsed, "cannot verify packet until height: %s, current height: %s",
				validHeight, currentHeight)
		}
	}

	return nil
}
