package ethereum

import (
	"bytes"
	"encoding/binary"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/store/prefix"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v10/modules/core/24-host"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
)

// GetClientState retrieves the client state from the client store.
func GetClientState(clientStore storetypes.KVStore) (*ClientState, error) {
	bz := clientStore.Get(ClientStateKey())
	if len(bz) == 0 {
		return nil, errorsmod.Wrap(lcerrors.ErrNotFound, "client state not found")
	}

	return unmarshalClientState(bz)
}

// setClientState stores the client state
func setClientState(clientStore storetypes.KVStore, clientState *ClientState) error {
	bz, err := marshalClientState(clientState)
	if err != nil {
		return err
	}

	clientStore.Set(ClientStateKey(), bz)
	return nil
}

// GetConsensusState retrieves the consensus state from the client prefixed
// store. An error is returned if the consensus state does not exist.
func GetConsensusState(clientStore storetypes.KVStore, height clienttypes.Height) (*ConsensusState, error) {
	bz := clientStore.Get(ConsensusStateKey(height))
	if len(bz) == 0 {
		return nil, errorsmod.Wrapf(ErrConsensusStateNotFound, "consensus state does not exist for height %s", height)
	}

	return unmarshalConsensusState(bz)
}

// setConsensusState stores the consensus state at the given height.
func setConsensusState(clientStore storetypes.KVStore, consensusState *ConsensusState, height clienttypes.Height) error {
	bz, err := marshalConsensusState(consensusState)
	if err != nil {
		return err
	}

	clientStore.Set(ConsensusStateKey(height), bz)
	return nil
}

// storeConsensusState writes the consensus state together with its
// processed time, processed height and iteration key.
func storeConsensusState(clientStore storetypes.KVStore, consensusState *ConsensusState, height clienttypes.Height, processedTime uint64, processedHeight clienttypes.Height) error {
	if err := setConsensusState(clientStore, consensusState, height); err != nil {
		return err
	}

	setConsensusMetadataWithValues(clientStore, height, processedHeight, processedTime)
	return nil
}

// deleteConsensusState deletes the consensus state at the given height
func deleteConsensusState(clientStore storetypes.KVStore, height clienttypes.Height) {
	clientStore.Delete(ConsensusStateKey(height))
}

// setConsensusMetadataWithValues sets the consensus metadata with the provided values
func setConsensusMetadataWithValues(
	clientStore storetypes.KVStore, height,
	processedHeight clienttypes.Height,
	processedTime uint64,
) {
	SetProcessedTime(clientStore, height, processedTime)
	SetProcessedHeight(clientStore, height, processedHeight)
	SetIterationKey(clientStore, height)
}

// deleteConsensusMetadata deletes the metadata stored for a particular consensus state.
func deleteConsensusMetadata(clientStore storetypes.KVStore, height clienttypes.Height) {
	deleteProcessedTime(clientStore, height)
	deleteProcessedHeight(clientStore, height)
	deleteIterationKey(clientStore, height)
}

// SetProcessedTime stores the time at which a header was processed and the corresponding consensus state was created.
// This is useful when validating whether a packet has reached the time specified delay period in the ethereum client's
// verification functions
func SetProcessedTime(clientStore storetypes.KVStore, height clienttypes.Height, timeNs uint64) {
	clientStore.Set(ProcessedTimeKey(height), sdk.Uint64ToBigEndian(timeNs))
}

// GetProcessedTime gets the time (in nanoseconds) at which this chain received and processed an ethereum header.
// This is used to validate that a received packet has passed the time delay period.
func GetProcessedTime(clientStore storetypes.KVStore, height clienttypes.Height) (uint64, bool) {
	bz := clientStore.Get(ProcessedTimeKey(height))
	if len(bz) == 0 {
		return 0, false
	}
	return sdk.BigEndianToUint64(bz), true
}

func deleteProcessedTime(clientStore storetypes.KVStore, height clienttypes.Height) {
	clientStore.Delete(ProcessedTimeKey(height))
}

// SetProcessedHeight stores the height at which a header was processed and the corresponding consensus state was created.
// This is useful when validating whether a packet has reached the specified block delay period in the ethereum client's
// verification functions
func SetProcessedHeight(clientStore storetypes.KVStore, consHeight, processedHeight clienttypes.Height) {
	clientStore.Set(ProcessedHeightKey(consHeight), []byte(processedHeight.String()))
}

// GetProcessedHeight gets the height at which this chain received and processed an ethereum header.
// This is used to validate that a received packet has passed the block delay period.
func GetProcessedHeight(clientStore storetypes.KVStore, height clienttypes.Height) (clienttypes.Height, bool) {
	bz := clientStore.Get(ProcessedHeightKey(height))
	if len(bz) == 0 {
		return clienttypes.ZeroHeight(), false
	}
	processedHeight, err := clienttypes.ParseHeight(string(bz))
	if err != nil {
		return clienttypes.ZeroHeight(), false
	}
	return processedHeight, true
}

func deleteProcessedHeight(clientStore storetypes.KVStore, height clienttypes.Height) {
	clientStore.Delete(ProcessedHeightKey(height))
}

// SetIterationKey stores the consensus state key under a key that is more efficient for ordered iteration
func SetIterationKey(clientStore storetypes.KVStore, height clienttypes.Height) {
	clientStore.Set(IterationKey(height), ConsensusStateKey(height))
}

func deleteIterationKey(clientStore storetypes.KVStore, height clienttypes.Height) {
	clientStore.Delete(IterationKey(height))
}

// GetHeightFromIterationKey takes an iteration key and returns the height that it references
func GetHeightFromIterationKey(iterKey []byte) clienttypes.Height {
	bigEndianBytes := iterKey[len([]byte(KeyIterateConsensusStatePrefix)):]
	revision := binary.BigEndian.Uint64(bigEndianBytes[0:8])
	height := binary.BigEndian.Uint64(bigEndianBytes[8:])
	return clienttypes.NewHeight(revision, height)
}

// IterateConsensusStateAscending iterates through the consensus states in ascending order. It calls the provided
// callback on each height, until stop=true is returned.
func IterateConsensusStateAscending(clientStore storetypes.KVStore, cb func(height clienttypes.Height) (stop bool)) {
	iterator := storetypes.KVStorePrefixIterator(clientStore, []byte(KeyIterateConsensusStatePrefix))
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		iterKey := iterator.Key()
		height := GetHeightFromIterationKey(iterKey)
		if cb(height) {
			break
		}
	}
}

// GetNextConsensusState returns the lowest consensus state that is larger than the given height.
// The Iterator returns a storetypes.Iterator which iterates from start (inclusive) to end (exclusive).
// If the starting height exists in store, we need to call iterator.Next() to get the next consensus state.
// Otherwise, the iterator is already at the next consensus state so we can call iterator.Value() immediately.
func GetNextConsensusState(clientStore storetypes.KVStore, height clienttypes.Height) (*ConsensusState, bool) {
	iterateStore := prefix.NewStore(clientStore, []byte(KeyIterateConsensusStatePrefix))
	iterator := iterateStore.Iterator(bigEndianHeightBytes(height.Increment().(clienttypes.Height)), nil)
	defer iterator.Close()
	if !iterator.Valid() {
		return nil, false
	}

	return getConsensusStateFromKey(clientStore, iterator.Value())
}

// GetPreviousConsensusState returns the highest consensus state that is lower than the given height.
// The Iterator returns a storetypes.Iterator which iterates from the end (exclusive) to start (inclusive).
// Thus to get previous consensus state we call iterator.Value() immediately.
func GetPreviousConsensusState(clientStore storetypes.KVStore, height clienttypes.Height) (*ConsensusState, bool) {
	iterateStore := prefix.NewStore(clientStore, []byte(KeyIterateConsensusStatePrefix))
	iterator := iterateStore.ReverseIterator(nil, bigEndianHeightBytes(height))
	defer iterator.Close()

	if !iterator.Valid() {
		return nil, false
	}

	return getConsensusStateFromKey(clientStore, iterator.Value())
}

func getConsensusStateFromKey(clientStore storetypes.KVStore, csKey []byte) (*ConsensusState, bool) {
	bz := clientStore.Get(csKey)
	if len(bz) == 0 {
		return nil, false
	}

	consensusState, err := unmarshalConsensusState(bz)
	if err != nil {
		return nil, false
	}

	return consensusState, true
}

// pruneOldestConsensusState will retrieve the earliest consensus state for this clientID and check if it is expired. If it is,
// that consensus state will be pruned from store along with all associated metadata. This will prevent the client store from
// becoming bloated with expired consensus states that can no longer be used for updates and packet verification.
// The latest consensus state is never pruned.
func (cs ClientState) pruneOldestConsensusState(clientStore storetypes.KVStore, now uint64) (clienttypes.Height, bool) {
	var (
		pruneHeight clienttypes.Height
		found       bool
	)

	IterateConsensusStateAscending(clientStore, func(height clienttypes.Height) bool {
		if height.GTE(cs.LatestHeight) {
			return true
		}

		consState, err := GetConsensusState(clientStore, height)
		if err != nil {
			return true
		}

		if cs.IsExpired(consState.GetTime(), timeFromNanos(now)) {
			pruneHeight = height
			found = true
		}

		return true
	})

	if found {
		deleteConsensusState(clientStore, pruneHeight)
		deleteConsensusMetadata(clientStore, pruneHeight)
	}

	return pruneHeight, found
}

// PruneAllExpiredConsensusStates iterates over all consensus states and prunes those which are expired
// relative to now, never pruning the latest one.
func (cs ClientState) PruneAllExpiredConsensusStates(clientStore storetypes.KVStore, now uint64) int {
	var heights []clienttypes.Height

	IterateConsensusStateAscending(clientStore, func(height clienttypes.Height) bool {
		if height.GTE(cs.LatestHeight) {
			return true
		}

		consState, err := GetConsensusState(clientStore, height)
		if err != nil {
			return false
		}

		if cs.IsExpired(consState.GetTime(), timeFromNanos(now)) {
			heights = append(heights, height)
		}

		return false
	})

	for _, height := range heights {
		deleteConsensusState(clientStore, height)
		deleteConsensusMetadata(clientStore, height)
	}

	return len(heights)
}

// isClientStoreKey reports whether key is one of the keys the client writes:
// the client state, a consensus state, its processed time or height, or an
// iteration key.
func isClientStoreKey(key []byte) bool {
	if bytes.Equal(key, ClientStateKey()) {
		return true
	}

	if bytes.HasPrefix(key, []byte(KeyIterateConsensusStatePrefix)) {
		return len(key) == len(KeyIterateConsensusStatePrefix)+16
	}

	keySplit := strings.Split(string(key), "/")
	if len(keySplit) < 2 || len(keySplit) > 3 || keySplit[0] != host.KeyConsensusStatePrefix {
		return false
	}
	if _, err := clienttypes.ParseHeight(keySplit[1]); err != nil {
		return false
	}

	return len(keySplit) == 2 || keySplit[2] == "processedTime" || keySplit[2] == "processedHeight"
}
