package ethereum

import (
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	"github.com/ethereum/go-ethereum/common"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	"github.com/cosmos/ibc-go/v10/modules/core/exported"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
)

// ClientState tracks an Ethereum beacon chain and the IBC contract deployed
// on its execution layer. Durations are expressed in seconds.
type ClientState struct {
	ChainID                      uint64         `json:"chain_id"`
	GenesisValidatorsRoot        common.Hash    `json:"genesis_validators_root"`
	GenesisTime                  uint64         `json:"genesis_time"`
	GenesisSlot                  uint64         `json:"genesis_slot"`
	ForkParameters               ForkParameters `json:"fork_parameters"`
	SecondsPerSlot               uint64         `json:"seconds_per_slot"`
	SlotsPerEpoch                uint64         `json:"slots_per_epoch"`
	EpochsPerSyncCommitteePeriod uint64         `json:"epochs_per_sync_committee_period"`
	SyncCommitteeSize            uint64         `json:"sync_committee_size"`
	MinSyncCommitteeParticipants uint64         `json:"min_sync_committee_participants"`

	LatestHeight clienttypes.Height `json:"latest_height"`
	FrozenHeight clienttypes.Height `json:"frozen_height"`

	TrustingPeriod  uint64 `json:"trusting_period"`
	UnbondingPeriod uint64 `json:"unbonding_period"`
	MaxClockDrift   uint64 `json:"max_clock_drift"`

	IbcCommitmentSlot  common.Hash    `json:"ibc_commitment_slot"`
	IbcContractAddress common.Address `json:"ibc_contract_address"`
	UpgradePath        []string       `json:"upgrade_path,omitempty"`

	// Checksum identifies the contract code and lives in the 08-wasm wrapper.
	Checksum []byte `json:"-"`
}

// ClientType returns the ethereum client type.
func (ClientState) ClientType() string {
	return ClientType
}

// Validate performs a basic validation of the client state fields.
func (cs ClientState) Validate() error {
	if cs.ChainID == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "chain id cannot be zero")
	}
	if cs.GenesisValidatorsRoot == (common.Hash{}) {
		return errorsmod.Wrap(ErrInvalidClientState, "genesis validators root cannot be empty")
	}
	if cs.GenesisTime == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "genesis time cannot be zero")
	}
	if err := cs.ForkParameters.Validate(); err != nil {
		return err
	}
	if cs.SecondsPerSlot == 0 || cs.SlotsPerEpoch == 0 || cs.EpochsPerSyncCommitteePeriod == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "slot, epoch and period lengths must be positive")
	}
	if cs.SyncCommitteeSize == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "sync committee size cannot be zero")
	}
	if _, err := newSyncCommitteeBits(make([]byte, (cs.SyncCommitteeSize+7)/8), cs.SyncCommitteeSize); err != nil {
		return errorsmod.Wrap(ErrInvalidClientState, err.Error())
	}
	if cs.MinSyncCommitteeParticipants == 0 || cs.MinSyncCommitteeParticipants > cs.SyncCommitteeSize {
		return errorsmod.Wrapf(
			ErrInvalidClientState,
			"minimum sync committee participants must be in [1, %d], got %d", cs.SyncCommitteeSize, cs.MinSyncCommitteeParticipants,
		)
	}
	if cs.LatestHeight.RevisionNumber != 0 || cs.LatestHeight.RevisionHeight == 0 {
		return errorsmod.Wrapf(ErrInvalidClientState, "latest height must be (0, slot), got %s", cs.LatestHeight)
	}
	if cs.LatestHeight.RevisionHeight < cs.GenesisSlot {
		return errorsmod.Wrapf(ErrInvalidClientState, "latest slot %d precedes genesis slot %d", cs.LatestHeight.RevisionHeight, cs.GenesisSlot)
	}
	if cs.TrustingPeriod == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "trusting period must be greater than zero")
	}
	if cs.UnbondingPeriod == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "unbonding period must be greater than zero")
	}
	if cs.TrustingPeriod >= cs.UnbondingPeriod {
		return errorsmod.Wrapf(
			ErrInvalidClientState,
			"trusting period (%d) should be < unbonding period (%d)", cs.TrustingPeriod, cs.UnbondingPeriod,
		)
	}
	if cs.IbcContractAddress == (common.Address{}) {
		return errorsmod.Wrap(ErrInvalidClientState, "ibc contract address cannot be empty")
	}
	for i, segment := range cs.UpgradePath {
		if segment == "" {
			return errorsmod.Wrapf(ErrInvalidClientState, "upgrade path segment %d cannot be empty", i)
		}
	}

	return nil
}

// IsFrozen reports whether misbehaviour has been submitted for the client.
func (cs ClientState) IsFrozen() bool {
	return !cs.FrozenHeight.IsZero()
}

// status returns the status of the ethereum client.
// The client may be:
// - Active: FrozenHeight is zero and client is not expired
// - Frozen: Frozen Height is not zero
// - Expired: the latest consensus state timestamp + trusting period < current time
//
// A frozen client will become expired, so the Frozen status
// has higher precedence.
func (cs ClientState) status(clientStore storetypes.KVStore, now time.Time) exported.Status {
	if cs.IsFrozen() {
		return exported.Frozen
	}

	consState, err := GetConsensusState(clientStore, cs.LatestHeight)
	if err != nil {
		if errors.Is(err, ErrConsensusStateNotFound) {
			// if the client state does not have an associated consensus state for its latest height
			// then it must be expired
			return exported.Expired
		}
		return exported.Unknown
	}

	if cs.IsExpired(consState.GetTime(), now) {
		return exported.Expired
	}

	return exported.Active
}

// checkActive maps a non active status onto its sentinel error.
func (cs ClientState) checkActive(clientStore storetypes.KVStore, now time.Time) error {
	switch status := cs.status(clientStore, now); status {
	case exported.Active:
		return nil
	case exported.Frozen:
		return errorsmod.Wrapf(ErrClientFrozen, "frozen at height %s", cs.FrozenHeight)
	case exported.Expired:
		return errorsmod.Wrapf(ErrClientExpired, "latest height %s outside trusting period", cs.LatestHeight)
	default:
		return errorsmod.Wrapf(ErrStore, "client status %s", status)
	}
}

// IsExpired returns whether or not the client has passed the trusting period since the last
// update (in which case no headers are considered valid).
func (cs ClientState) IsExpired(latestTimestamp, now time.Time) bool {
	expirationTime := latestTimestamp.Add(cs.trustingPeriod())
	return now.After(expirationTime)
}

func (cs ClientState) trustingPeriod() time.Duration {
	return time.Duration(cs.TrustingPeriod) * time.Second
}

func (cs ClientState) maxClockDrift() time.Duration {
	return time.Duration(cs.MaxClockDrift) * time.Second
}

func (cs ClientState) computeEpochAtSlot(slot uint64) uint64 {
	return slot / cs.SlotsPerEpoch
}

func (cs ClientState) computeSyncCommitteePeriodAtSlot(slot uint64) uint64 {
	return cs.computeEpochAtSlot(slot) / cs.EpochsPerSyncCommitteePeriod
}

func (cs ClientState) forkAtSlot(slot uint64) beacon.Fork {
	return cs.ForkParameters.ForkAtEpoch(cs.computeEpochAtSlot(slot))
}

// computeTimestampAtSlot returns the unix time in seconds of slot.
func (cs ClientState) computeTimestampAtSlot(slot uint64) uint64 {
	return cs.GenesisTime + (slot-cs.GenesisSlot)*cs.SecondsPerSlot
}

// computeSlotAtTime returns the slot in progress at t.
func (cs ClientState) computeSlotAtTime(t time.Time) uint64 {
	unix := t.Unix()
	if unix < 0 || uint64(unix) < cs.GenesisTime {
		return cs.GenesisSlot
	}
	return cs.GenesisSlot + (uint64(unix)-cs.GenesisTime)/cs.SecondsPerSlot
}

// getTimestampAtHeight returns the timestamp in nanoseconds of the consensus state at the given height.
func (cs ClientState) getTimestampAtHeight(clientStore storetypes.KVStore, height clienttypes.Height) (uint64, error) {
	consState, err := GetConsensusState(clientStore, height)
	if err != nil {
		return 0, err
	}
	return consState.GetTimestamp(), nil
}

// ZeroCustomFields returns a copy of the client state with all relayer
// chosen fields set to their zero value.
func (cs ClientState) ZeroCustomFields() *ClientState {
	zeroed := cs
	zeroed.LatestHeight = clienttypes.ZeroHeight()
	zeroed.FrozenHeight = clienttypes.ZeroHeight()
	zeroed.TrustingPeriod = 0
	zeroed.MaxClockDrift = 0
	zeroed.Checksum = nil
	return &zeroed
}

// initialize checks that the initial consensus state is valid for the client
// and stores both states along with the metadata of the consensus state.
func (cs *ClientState) initialize(clientStore storetypes.KVStore, consState *ConsensusState, processedTime uint64, processedHeight clienttypes.Height) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	if err := consState.ValidateBasic(); err != nil {
		return err
	}
	if consState.Slot != cs.LatestHeight.RevisionHeight {
		return errorsmod.Wrapf(
			ErrInvalidConsensusState,
			"consensus state slot %d does not match latest height %s", consState.Slot, cs.LatestHeight,
		)
	}
	if cs.IsFrozen() {
		return errorsmod.Wrap(ErrInvalidClientState, "client cannot be frozen on creation")
	}
	if len(cs.Checksum) == 0 {
		return errorsmod.Wrap(ErrInvalidClientState, "checksum cannot be empty")
	}

	if err := setClientState(clientStore, cs); err != nil {
		return err
	}

	return storeConsensusState(clientStore, consState, cs.LatestHeight, processedTime, processedHeight)
}

func (cs ClientState) unbondingPeriod() time.Duration {
	return time.Duration(cs.UnbondingPeriod) * time.Second
}
