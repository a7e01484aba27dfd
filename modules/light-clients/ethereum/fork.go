package ethereum

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
)

// ForkUnscheduled is the activation epoch of a fork that has not been scheduled.
const ForkUnscheduled = math.MaxUint64

// Fork is a scheduled consensus upgrade.
type Fork struct {
	Version hexutil.Bytes `json:"version"`
	Epoch   uint64        `json:"epoch"`
}

// ForkParameters is the fork schedule of the tracked chain.
type ForkParameters struct {
	GenesisForkVersion hexutil.Bytes `json:"genesis_fork_version"`
	Altair             Fork          `json:"altair"`
	Bellatrix          Fork          `json:"bellatrix"`
	Capella            Fork          `json:"capella"`
	Deneb              Fork          `json:"deneb"`
	Electra            Fork          `json:"electra"`
}

// Validate checks that every version is four bytes and activation epochs
// are non-decreasing.
func (fp ForkParameters) Validate() error {
	if len(fp.GenesisForkVersion) != 4 {
		return errorsmod.Wrapf(ErrInvalidClientState, "genesis fork version must be 4 bytes, got %d", len(fp.GenesisForkVersion))
	}

	var prev uint64
	for _, f := range fp.scheduled() {
		if len(f.fork.Version) != 4 {
			return errorsmod.Wrapf(ErrInvalidClientState, "%s fork version must be 4 bytes, got %d", f.name, len(f.fork.Version))
		}
		if f.fork.Epoch < prev {
			return errorsmod.Wrapf(ErrInvalidClientState, "%s fork epoch %d precedes previous fork epoch %d", f.name, f.fork.Epoch, prev)
		}
		prev = f.fork.Epoch
	}

	return nil
}

type namedFork struct {
	name beacon.Fork
	fork Fork
}

func (fp ForkParameters) scheduled() []namedFork {
	return []namedFork{
		{beacon.Altair, fp.Altair},
		{beacon.Bellatrix, fp.Bellatrix},
		{beacon.Capella, fp.Capella},
		{beacon.Deneb, fp.Deneb},
		{beacon.Electra, fp.Electra},
	}
}

// ForkAtEpoch returns the fork active at epoch.
func (fp ForkParameters) ForkAtEpoch(epoch uint64) beacon.Fork {
	active := beacon.Phase0
	for _, f := range fp.scheduled() {
		if epoch >= f.fork.Epoch {
			active = f.name
		}
	}
	return active
}

// ForkVersionAtEpoch returns the fork version active at epoch.
func (fp ForkParameters) ForkVersionAtEpoch(epoch uint64) [4]byte {
	var version [4]byte
	copy(version[:], fp.GenesisForkVersion)
	for _, f := range fp.scheduled() {
		if epoch >= f.fork.Epoch {
			copy(version[:], f.fork.Version)
		}
	}
	return version
}
