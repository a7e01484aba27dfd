package testing

import (
	"crypto/sha256"
	"time"

	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
)

// Parameters of the simulated beacon chain, following the minimal preset.
const (
	DefaultChainID               = 32382
	DefaultGenesisTime           = 1_700_000_000
	SecondsPerSlot               = 6
	SlotsPerEpoch                = 8
	EpochsPerSyncCommitteePeriod = 8
	SlotsPerPeriod               = SlotsPerEpoch * EpochsPerSyncCommitteePeriod
	SyncCommitteeSize            = 32

	DefaultTrustingPeriod  = 24 * 60 * 60
	DefaultUnbondingPeriod = 3 * DefaultTrustingPeriod
	DefaultMaxClockDrift   = 2 * SecondsPerSlot

	HostChainID = "host-1"
)

var (
	GenesisValidatorsRoot = common.HexToHash("0xd61ea484febacfae5298d52a2b581f3e305a51f3112a9241b968dccf019f7b11")
	ContractAddress       = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	IbcCommitmentSlot     = common.HexToHash("0x1ee222554989dda120e26ecacf756fe1235cd8d726706b57517715dde4f0c900")
	Checksum              = sha256.Sum256([]byte("ethereum-light-client"))

	DefaultUpgradePath = []string{"upgrade", "upgradedIBCState"}
)

// DefaultForkParameters activates every fork up to Deneb at genesis.
func DefaultForkParameters() ethereum.ForkParameters {
	return ethereum.ForkParameters{
		GenesisForkVersion: hexutil.Bytes{0x10, 0x00, 0x00, 0x38},
		Altair:             ethereum.Fork{Version: hexutil.Bytes{0x20, 0x00, 0x00, 0x38}, Epoch: 0},
		Bellatrix:          ethereum.Fork{Version: hexutil.Bytes{0x30, 0x00, 0x00, 0x38}, Epoch: 0},
		Capella:            ethereum.Fork{Version: hexutil.Bytes{0x40, 0x00, 0x00, 0x38}, Epoch: 0},
		Deneb:              ethereum.Fork{Version: hexutil.Bytes{0x50, 0x00, 0x00, 0x38}, Epoch: 0},
		Electra:            ethereum.Fork{Version: hexutil.Bytes{0x60, 0x00, 0x00, 0x38}, Epoch: ethereum.ForkUnscheduled},
	}
}

// SlotTime returns the unix time in seconds of slot.
func SlotTime(slot uint64) uint64 {
	return DefaultGenesisTime + slot*SecondsPerSlot
}

// TimeAtSlot returns a time one second into slot.
func TimeAtSlot(slot uint64) time.Time {
	return time.Unix(int64(SlotTime(slot))+1, 0).UTC()
}

// Env returns a host environment at time t and host block height.
func Env(t time.Time, height uint64) wasmvmtypes.Env {
	return wasmvmtypes.Env{
		Block: wasmvmtypes.BlockInfo{
			Height:  height,
			Time:    wasmvmtypes.Uint64(t.UnixNano()),
			ChainID: HostChainID,
		},
		Contract: wasmvmtypes.ContractInfo{
			Address: "contract",
		},
	}
}

// HostHeight returns the height the contract derives from Env(_, height).
func HostHeight(height uint64) clienttypes.Height {
	return clienttypes.NewHeight(clienttypes.ParseChainID(HostChainID), height)
}
