package ethereum

import (
	"bytes"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
)

// ClientMessage is implemented by the messages the client accepts for
// verification and state updates: *Header and *Misbehaviour.
type ClientMessage interface {
	ValidateBasic() error
	isClientMessage()
}

var (
	_ ClientMessage = (*Header)(nil)
	_ ClientMessage = (*Misbehaviour)(nil)
)

// TrustedSyncCommittee names the trusted consensus state an update builds on
// and supplies the sync committee that signed the update. Exactly one of the
// current or next committee of the trusted consensus state must be set.
type TrustedSyncCommittee struct {
	TrustedHeight        clienttypes.Height `json:"trusted_height"`
	CurrentSyncCommittee *SyncCommittee     `json:"current_sync_committee,omitempty"`
	NextSyncCommittee    *SyncCommittee     `json:"next_sync_committee,omitempty"`
}

// committee returns the supplied committee and whether it is the next one.
func (t TrustedSyncCommittee) committee() (*SyncCommittee, bool) {
	if t.CurrentSyncCommittee != nil {
		return t.CurrentSyncCommittee, false
	}
	return t.NextSyncCommittee, true
}

// ValidateBasic checks that exactly one committee is supplied.
func (t TrustedSyncCommittee) ValidateBasic() error {
	if t.TrustedHeight.IsZero() {
		return errorsmod.Wrap(ErrInvalidHeader, "trusted height cannot be zero")
	}
	if (t.CurrentSyncCommittee == nil) == (t.NextSyncCommittee == nil) {
		return errorsmod.Wrap(ErrInvalidHeader, "exactly one of current and next sync committee must be set")
	}
	return nil
}

// AccountProof proves the storage root of the IBC contract account against
// the execution state root of the finalized header.
type AccountProof struct {
	Proof       []hexutil.Bytes `json:"proof"`
	StorageRoot common.Hash     `json:"storage_root"`
}

// AccountUpdate carries the account proof of a header.
type AccountUpdate struct {
	AccountProof AccountProof `json:"account_proof"`
}

// Header is a light client update for a new finalized slot plus the IBC
// contract storage root at that slot.
type Header struct {
	TrustedSyncCommittee TrustedSyncCommittee `json:"trusted_sync_committee"`
	ConsensusUpdate      LightClientUpdate    `json:"consensus_update"`
	AccountUpdate        AccountUpdate        `json:"account_update"`
}

func (*Header) isClientMessage() {}

// GetHeight returns (0, finalized slot).
func (h Header) GetHeight() clienttypes.Height {
	return clienttypes.NewHeight(0, h.ConsensusUpdate.FinalizedHeader.Beacon.Slot)
}

// ValidateBasic performs stateless checks of the header.
func (h Header) ValidateBasic() error {
	if err := h.TrustedSyncCommittee.ValidateBasic(); err != nil {
		return err
	}
	if h.GetHeight().IsZero() {
		return errorsmod.Wrap(ErrInvalidHeader, "finalized slot cannot be zero")
	}
	if h.TrustedSyncCommittee.TrustedHeight.GT(h.GetHeight()) {
		return errorsmod.Wrapf(
			ErrInvalidHeader,
			"trusted height %s is greater than header height %s", h.TrustedSyncCommittee.TrustedHeight, h.GetHeight(),
		)
	}
	if len(h.AccountUpdate.AccountProof.Proof) == 0 {
		return errorsmod.Wrap(ErrInvalidHeader, "account proof cannot be empty")
	}
	if h.AccountUpdate.AccountProof.StorageRoot == (common.Hash{}) {
		return errorsmod.Wrap(ErrInvalidHeader, "storage root cannot be empty")
	}
	return nil
}

// Misbehaviour is evidence of two valid updates signed by the same trusted
// sync committee that finalize conflicting headers.
type Misbehaviour struct {
	TrustedSyncCommittee TrustedSyncCommittee `json:"trusted_sync_committee"`
	UpdateOne            LightClientUpdate    `json:"update_1"`
	UpdateTwo            LightClientUpdate    `json:"update_2"`
}

func (*Misbehaviour) isClientMessage() {}

// ValidateBasic performs stateless checks of the misbehaviour.
func (m Misbehaviour) ValidateBasic() error {
	if err := m.TrustedSyncCommittee.ValidateBasic(); err != nil {
		return errorsmod.Wrap(ErrInvalidMisbehaviour, err.Error())
	}
	for _, update := range []LightClientUpdate{m.UpdateOne, m.UpdateTwo} {
		if update.FinalizedHeader.Beacon.Slot < m.TrustedSyncCommittee.TrustedHeight.RevisionHeight {
			return errorsmod.Wrapf(
				ErrInvalidMisbehaviour,
				"finalized slot %d precedes trusted height %s", update.FinalizedHeader.Beacon.Slot, m.TrustedSyncCommittee.TrustedHeight,
			)
		}
	}
	return nil
}

// decodeClientMessage decodes the JSON encoding of a Header or Misbehaviour.
func decodeClientMessage(bz []byte) (ClientMessage, error) {
	header := new(Header)
	if err := decodeStrict(bz, header); err == nil {
		return header, nil
	}

	misbehaviour := new(Misbehaviour)
	if err := decodeStrict(bz, misbehaviour); err == nil {
		return misbehaviour, nil
	}

	return nil, errorsmod.Wrap(lcerrors.ErrInvalidType, "client message is neither a header nor a misbehaviour")
}

func decodeStrict(bz []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(bz))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// GetHeight returns the height of the higher of the two finalized slots.
func (m Misbehaviour) GetHeight() clienttypes.Height {
	slot := m.UpdateOne.FinalizedHeader.Beacon.Slot
	if m.UpdateTwo.FinalizedHeader.Beacon.Slot > slot {
		slot = m.UpdateTwo.FinalizedHeader.Beacon.Slot
	}
	return clienttypes.NewHeight(0, slot)
}
