package ethereum

import (
	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
)

// ExportMetadata exports the client state and, per height in ascending order, the consensus state
// and its metadata so they can be included in clients genesis and imported by ImportMetadata.
func (ClientState) ExportMetadata(clientStore storetypes.KVStore) []clienttypes.GenesisMetadata {
	gm := make([]clienttypes.GenesisMetadata, 0)

	appendKey := func(key []byte) {
		if value := clientStore.Get(key); len(value) != 0 {
			gm = append(gm, clienttypes.NewGenesisMetadata(key, value))
		}
	}

	appendKey(ClientStateKey())
	IterateConsensusStateAscending(clientStore, func(height clienttypes.Height) bool {
		appendKey(ConsensusStateKey(height))
		appendKey(ProcessedTimeKey(height))
		appendKey(ProcessedHeightKey(height))
		appendKey(IterationKey(height))
		return false
	})

	if len(gm) == 0 {
		return nil
	}
	return gm
}

// ImportMetadata writes exported metadata into an empty client store. The
// metadata must contain a decodable client state and only keys the client writes.
func ImportMetadata(clientStore storetypes.KVStore, metadata []clienttypes.GenesisMetadata) error {
	if len(clientStore.Get(ClientStateKey())) != 0 {
		return errorsmod.Wrap(lcerrors.ErrInvalidRequest, "client store is not empty")
	}

	var hasClientState bool
	for i, gm := range metadata {
		if err := gm.Validate(); err != nil {
			return errorsmod.Wrapf(lcerrors.ErrInvalidRequest, "metadata %d: %v", i, err)
		}
		if !isClientStoreKey(gm.GetKey()) {
			return errorsmod.Wrapf(lcerrors.ErrInvalidRequest, "metadata %d: unexpected key %q", i, gm.GetKey())
		}
		if string(gm.GetKey()) == string(ClientStateKey()) {
			if _, err := unmarshalClientState(gm.GetValue()); err != nil {
				return err
			}
			hasClientState = true
		}
	}

	if !hasClientState {
		return errorsmod.Wrap(lcerrors.ErrInvalidRequest, "metadata does not contain a client state")
	}

	for _, gm := range metadata {
		clientStore.Set(gm.GetKey(), gm.GetValue())
	}

	return nil
}
