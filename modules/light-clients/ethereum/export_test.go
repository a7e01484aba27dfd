package ethereum

import (
	"time"

	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"

	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	commitmenttypesv2 "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types/v2"
	"github.com/cosmos/ibc-go/v10/modules/core/exported"
)

/*
	This file is to allow for unexported functions and fields to be accessible to the testing package.
*/

// HostEnv is the host view passed to client state methods.
type HostEnv = hostEnv

// NewHostEnv is a wrapper around newHostEnv to allow the function to be directly called in tests.
func NewHostEnv(env wasmvmtypes.Env) HostEnv {
	return newHostEnv(env)
}

// Status is a wrapper around status to allow the method to be directly called in tests.
func (cs ClientState) Status(clientStore storetypes.KVStore, now time.Time) exported.Status {
	return cs.status(clientStore, now)
}

// DecodeClientMessage is a wrapper around decodeClientMessage to allow the function to be directly called in tests.
func DecodeClientMessage(bz []byte) (ClientMessage, error) {
	return decodeClientMessage(bz)
}

// IsClientStoreKey is a wrapper around isClientStoreKey to allow the function to be directly called in tests.
func IsClientStoreKey(key []byte) bool {
	return isClientStoreKey(key)
}

// SetClientState is a wrapper around setClientState to allow the function to be directly called in tests.
func SetClientState(clientStore storetypes.KVStore, clientState *ClientState) error {
	return setClientState(clientStore, clientState)
}

// StoreConsensusState is a wrapper around storeConsensusState to allow the function to be directly called in tests.
func StoreConsensusState(clientStore storetypes.KVStore, consState *ConsensusState, height clienttypes.Height, processedTime uint64, processedHeight clienttypes.Height) error {
	return storeConsensusState(clientStore, consState, height, processedTime, processedHeight)
}

// PruneOldestConsensusState is a wrapper around pruneOldestConsensusState to allow the method to be directly called in tests.
func (cs ClientState) PruneOldestConsensusState(clientStore storetypes.KVStore, now uint64) (clienttypes.Height, bool) {
	return cs.pruneOldestConsensusState(clientStore, now)
}

// CalculateNewTrustingPeriod is a wrapper around calculateNewTrustingPeriod to allow the function to be directly called in tests.
func CalculateNewTrustingPeriod(trustingPeriod, originalUnbonding, newUnbonding time.Duration) time.Duration {
	return calculateNewTrustingPeriod(trustingPeriod, originalUnbonding, newUnbonding)
}

// ConstructUpgradeMerklePath is a wrapper around constructUpgradeMerklePath to allow the function to be directly called in tests.
func ConstructUpgradeMerklePath(upgradePath []string, lastHeight uint64, key string) commitmenttypesv2.MerklePath {
	return constructUpgradeMerklePath(upgradePath, lastHeight, key)
}
