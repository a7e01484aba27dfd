package ethereum

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/gogoproto/proto"

	wasmtypes "github.com/cosmos/ibc-go/modules/light-clients/08-wasm/v10/types"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
)

// marshalClientState wraps the client state in the 08-wasm ClientState the
// host reads and encodes it as a protobuf Any.
func marshalClientState(clientState *ClientState) ([]byte, error) {
	data, err := json.Marshal(clientState)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrStore, "failed to encode client state: %v", err)
	}

	wrapped := &wasmtypes.ClientState{
		Data:         data,
		Checksum:     clientState.Checksum,
		LatestHeight: clientState.LatestHeight,
	}

	anyClientState, err := codectypes.NewAnyWithValue(wrapped)
	if err != nil {
		return nil, errorsmod.Wrap(lcerrors.ErrPackAny, err.Error())
	}

	return anyClientState.Marshal()
}

// unmarshalClientState is the inverse of marshalClientState.
func unmarshalClientState(bz []byte) (*ClientState, error) {
	var wrapped wasmtypes.ClientState
	if err := unpackAny(bz, &wrapped); err != nil {
		return nil, err
	}

	clientState, err := decodeClientState(wrapped.Data)
	if err != nil {
		return nil, err
	}
	clientState.Checksum = wrapped.Checksum

	return clientState, nil
}

// decodeClientState decodes the JSON client state carried in wasm data fields.
func decodeClientState(data []byte) (*ClientState, error) {
	var clientState ClientState
	if err := json.Unmarshal(data, &clientState); err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidClientState, "failed to decode client state: %v", err)
	}
	return &clientState, nil
}

func marshalConsensusState(consensusState *ConsensusState) ([]byte, error) {
	data, err := json.Marshal(consensusState)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrStore, "failed to encode consensus state: %v", err)
	}

	anyConsensusState, err := codectypes.NewAnyWithValue(&wasmtypes.ConsensusState{Data: data})
	if err != nil {
		return nil, errorsmod.Wrap(lcerrors.ErrPackAny, err.Error())
	}

	return anyConsensusState.Marshal()
}

func unmarshalConsensusState(bz []byte) (*ConsensusState, error) {
	var wrapped wasmtypes.ConsensusState
	if err := unpackAny(bz, &wrapped); err != nil {
		return nil, err
	}

	return decodeConsensusState(wrapped.Data)
}

// decodeConsensusState decodes the JSON consensus state carried in wasm data fields.
func decodeConsensusState(data []byte) (*ConsensusState, error) {
	var consensusState ConsensusState
	if err := json.Unmarshal(data, &consensusState); err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidConsensusState, "failed to decode consensus state: %v", err)
	}
	return &consensusState, nil
}

func unpackAny(bz []byte, msg proto.Message) error {
	var anyMsg codectypes.Any
	if err := anyMsg.Unmarshal(bz); err != nil {
		return errorsmod.Wrap(lcerrors.ErrUnpackAny, err.Error())
	}

	if expected := "/" + proto.MessageName(msg); anyMsg.TypeUrl != expected {
		return errorsmod.Wrapf(lcerrors.ErrInvalidType, "expected %s, got %s", expected, anyMsg.TypeUrl)
	}

	if err := proto.Unmarshal(anyMsg.Value, msg); err != nil {
		return errorsmod.Wrap(lcerrors.ErrUnpackAny, err.Error())
	}

	return nil
}
