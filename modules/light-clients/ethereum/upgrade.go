package ethereum

import (
	"encoding/json"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	upgradetypes "cosmossdk.io/x/upgrade/types"

	commitmenttypesv2 "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types/v2"
)

// VerifyUpgradeAndUpdateState checks if the upgraded client has been committed by the current client
// It will zero out all client-specific fields and verify all data in client state that must
// be the same across all valid ethereum clients for the new chain.
// Note, if there is a decrease in the UnbondingPeriod, then the TrustingPeriod, despite being a client-specific field
// is scaled down by the same ratio.
// VerifyUpgrade will return an error if:
// - the client is not active or has no upgrade path
// - the height of upgraded client is not greater than that of current client
// - the upgraded consensus state is not for the latest height of the upgraded client
// - the upgraded client or consensus state is not committed under the upgrade path in the latest consensus state
func (cs *ClientState) VerifyUpgradeAndUpdateState(
	clientStore storetypes.KVStore, env hostEnv,
	upgradedClient *ClientState, upgradedConsState *ConsensusState,
	upgradeClientProof, upgradeConsStateProof []byte,
) error {
	if err := cs.checkActive(clientStore, env.Time); err != nil {
		return err
	}

	if len(cs.UpgradePath) == 0 {
		return errorsmod.Wrap(ErrInvalidUpgrade, "cannot upgrade client, no upgrade path set")
	}

	if !upgradedClient.LatestHeight.GT(cs.LatestHeight) {
		return errorsmod.Wrapf(
			ErrInvalidUpgrade,
			"upgraded client height %s must be greater than current client height %s", upgradedClient.LatestHeight, cs.LatestHeight,
		)
	}

	if upgradedConsState.Slot != upgradedClient.LatestHeight.RevisionHeight {
		return errorsmod.Wrapf(
			ErrInvalidUpgrade,
			"upgraded consensus state slot %d does not match upgraded client height %s", upgradedConsState.Slot, upgradedClient.LatestHeight,
		)
	}

	clientProof, err := decodeStorageProof(upgradeClientProof)
	if err != nil {
		return errorsmod.Wrap(err, "could not decode client state proof")
	}
	consStateProof, err := decodeStorageProof(upgradeConsStateProof)
	if err != nil {
		return errorsmod.Wrap(err, "could not decode consensus state proof")
	}

	// Must prove against latest consensus state to ensure we are verifying against latest upgrade plan
	consState, err := GetConsensusState(clientStore, cs.LatestHeight)
	if err != nil {
		return errorsmod.Wrap(err, "could not retrieve consensus state for latest height")
	}

	bz, err := json.Marshal(upgradedClient.ZeroCustomFields())
	if err != nil {
		return errorsmod.Wrapf(ErrInvalidUpgrade, "could not marshal client state: %v", err)
	}
	upgradeClientPath := constructUpgradeMerklePath(cs.UpgradePath, cs.LatestHeight.RevisionHeight, upgradetypes.KeyUpgradedClient)
	if err := cs.verifyCommitted(consState, upgradeClientPath, clientProof, bz); err != nil {
		return errorsmod.Wrapf(err, "client state proof failed. Path: %s", upgradeClientPath.GetKeyPath())
	}

	bz, err = json.Marshal(upgradedConsState)
	if err != nil {
		return errorsmod.Wrapf(ErrInvalidUpgrade, "could not marshal consensus state: %v", err)
	}
	upgradeConsStatePath := constructUpgradeMerklePath(cs.UpgradePath, cs.LatestHeight.RevisionHeight, upgradetypes.KeyUpgradedConsState)
	if err := cs.verifyCommitted(consState, upgradeConsStatePath, consStateProof, bz); err != nil {
		return errorsmod.Wrapf(err, "consensus state proof failed. Path: %s", upgradeConsStatePath.GetKeyPath())
	}

	trustingPeriod := cs.trustingPeriod()
	if upgradedClient.UnbondingPeriod < cs.UnbondingPeriod {
		trustingPeriod = calculateNewTrustingPeriod(trustingPeriod, cs.unbondingPeriod(), upgradedClient.unbondingPeriod())
	}

	// All chain-chosen parameters come from committed client, all client-chosen parameters
	// come from current client.
	newClientState := *upgradedClient
	newClientState.TrustingPeriod = uint64(trustingPeriod / time.Second)
	newClientState.MaxClockDrift = cs.MaxClockDrift
	newClientState.FrozenHeight = cs.FrozenHeight
	newClientState.Checksum = cs.Checksum

	if err := newClientState.Validate(); err != nil {
		return errorsmod.Wrap(err, "updated client state failed basic validation")
	}
	if err := upgradedConsState.ValidateBasic(); err != nil {
		return errorsmod.Wrap(err, "upgraded consensus state failed basic validation")
	}

	*cs = newClientState
	if err := setClientState(clientStore, cs); err != nil {
		return err
	}

	return storeConsensusState(clientStore, upgradedConsState, cs.LatestHeight, env.timestamp(), env.Height)
}

// verifyCommitted verifies that value is committed at path under the storage root of consState.
func (cs ClientState) verifyCommitted(consState *ConsensusState, path commitmenttypesv2.MerklePath, proof *StorageProof, value []byte) error {
	key, err := commitmentPath(path)
	if err != nil {
		return err
	}

	expected := CommitmentWord(value)
	word, err := cs.verifyStorage(consState.StorageRoot, key, proof)
	if err != nil {
		return err
	}

	if word != expected {
		return errorsmod.Wrapf(ErrVerificationFailed, "stored commitment %s does not match %s", word, expected)
	}

	return nil
}

// constructUpgradeMerklePath builds the path of an upgraded client or consensus state committed
// under upgradePath at lastHeight. The final path segment is suffixed with "/<height>/<key>".
func constructUpgradeMerklePath(upgradePath []string, lastHeight uint64, key string) commitmenttypesv2.MerklePath {
	keyPath := make([][]byte, 0, len(upgradePath))
	for _, part := range upgradePath[:len(upgradePath)-1] {
		keyPath = append(keyPath, []byte(part))
	}

	lastKey := upgradePath[len(upgradePath)-1]
	keyPath = append(keyPath, []byte(fmt.Sprintf("%s/%d/%s", lastKey, lastHeight, key)))

	return commitmenttypesv2.NewMerklePath(keyPath...)
}

// UpgradeCommitmentPath returns the commitment path of an upgraded client (or consensus state when
// consensus is true) committed under upgradePath at lastHeight.
func UpgradeCommitmentPath(upgradePath []string, lastHeight uint64, consensus bool) ([]byte, error) {
	if len(upgradePath) == 0 {
		return nil, errorsmod.Wrap(ErrInvalidUpgrade, "upgrade path cannot be empty")
	}

	key := upgradetypes.KeyUpgradedClient
	if consensus {
		key = upgradetypes.KeyUpgradedConsState
	}

	path, err := commitmentPath(constructUpgradeMerklePath(upgradePath, lastHeight, key))
	if err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidUpgrade, "invalid upgrade path %v: %v", upgradePath, err)
	}
	return path, nil
}

// calculateNewTrustingPeriod converts the provided durations to decimal representation to avoid floating-point precision issues
// and calculates the new trusting period, decreasing it by the ratio between the original and new unbonding period.
func calculateNewTrustingPeriod(trustingPeriod, originalUnbonding, newUnbonding time.Duration) time.Duration {
	origUnbondingDec := sdkmath.LegacyNewDec(originalUnbonding.Nanoseconds())
	newUnbondingDec := sdkmath.LegacyNewDec(newUnbonding.Nanoseconds())
	trustingPeriodDec := sdkmath.LegacyNewDec(trustingPeriod.Nanoseconds())

	// compute new trusting period: trustingPeriod * newUnbonding / originalUnbonding
	newTrustingPeriodDec := trustingPeriodDec.Mul(newUnbondingDec).Quo(origUnbondingDec)
	return time.Duration(newTrustingPeriodDec.TruncateInt64())
}
