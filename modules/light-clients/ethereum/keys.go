package ethereum

import (
	"encoding/binary"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v10/modules/core/24-host"
)

const (
	// ModuleName is the codespace of the ethereum light client errors.
	ModuleName = "08-wasm-ethereum"

	// ClientType is the light client type reported in telemetry and logs.
	ClientType = "ethereum"

	// KeyIterateConsensusStatePrefix prefixes the ordered consensus state index.
	KeyIterateConsensusStatePrefix = "iterateConsensusStates"
)

var (
	// KeyProcessedTime is appended to consensus state key to store the processed time
	KeyProcessedTime = []byte("/processedTime")
	// KeyProcessedHeight is appended to consensus state key to store the processed height
	KeyProcessedHeight = []byte("/processedHeight")
)

// ClientStateKey returns the key of the singleton client state.
func ClientStateKey() []byte {
	return host.ClientStateKey()
}

// ConsensusStateKey returns the key of the consensus state at height, formatted
// as "consensusStates/<revision>-<height>".
func ConsensusStateKey(height clienttypes.Height) []byte {
	return host.ConsensusStateKey(height)
}

// ProcessedTimeKey returns the key under which the processed time will be stored in the client store.
func ProcessedTimeKey(height clienttypes.Height) []byte {
	return append(ConsensusStateKey(height), KeyProcessedTime...)
}

// ProcessedHeightKey returns the key under which the processed height will be stored in the client store.
func ProcessedHeightKey(height clienttypes.Height) []byte {
	return append(ConsensusStateKey(height), KeyProcessedHeight...)
}

// IterationKey returns the key under which the consensus state key will be stored.
// The iteration key is a BigEndian representation of the consensus state key to support efficient iteration.
func IterationKey(height clienttypes.Height) []byte {
	return append([]byte(KeyIterateConsensusStatePrefix), bigEndianHeightBytes(height)...)
}

func bigEndianHeightBytes(height clienttypes.Height) []byte {
	bz := make([]byte, 16)
	binary.BigEndian.PutUint64(bz[:8], height.GetRevisionNumber())
	binary.BigEndian.PutUint64(bz[8:], height.GetRevisionHeight())
	return bz
}
