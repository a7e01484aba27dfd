package ethereum_test

import (
	"github.com/ethereum/go-ethereum/common"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
	ethtesting "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/testing"
)

func (s *EthereumTestSuite) TestHeaderValidateBasic() {
	var header *ethereum.Header

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{"success", func() {}, nil},
		{"success: trusted height equals header height", func() {
			header.TrustedSyncCommittee.TrustedHeight = header.GetHeight()
		}, nil},
		{"zero trusted height", func() {
			header.TrustedSyncCommittee.TrustedHeight = clienttypes.ZeroHeight()
		}, ethereum.ErrInvalidHeader},
		{"no sync committee", func() {
			header.TrustedSyncCommittee.CurrentSyncCommittee = nil
		}, ethereum.ErrInvalidHeader},
		{"both sync committees", func() {
			header.TrustedSyncCommittee.NextSyncCommittee = s.chain.SyncCommittee(1)
		}, ethereum.ErrInvalidHeader},
		{"zero finalized slot", func() {
			header.ConsensusUpdate.FinalizedHeader.Beacon.Slot = 0
		}, ethereum.ErrInvalidHeader},
		{"trusted height above header height", func() {
			header.TrustedSyncCommittee.TrustedHeight = clienttypes.NewHeight(0, 6)
		}, ethereum.ErrInvalidHeader},
		{"empty account proof", func() {
			header.AccountUpdate.AccountProof.Proof = nil
		}, ethereum.ErrInvalidHeader},
		{"empty storage root", func() {
			header.AccountUpdate.AccountProof.StorageRoot = common.Hash{}
		}, ethereum.ErrInvalidHeader},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			header = s.chain.Update(initialSlot, 5, ethtesting.UpdateOptions{})

			tc.malleate()

			err := header.ValidateBasic()
			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(clienttypes.NewHeight(0, 5), header.GetHeight())
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *EthereumTestSuite) TestMisbehaviourValidateBasic() {
	var misbehaviour *ethereum.Misbehaviour

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{"success", func() {}, nil},
		{"no sync committee", func() {
			misbehaviour.TrustedSyncCommittee.CurrentSyncCommittee = nil
		}, ethereum.ErrInvalidMisbehaviour},
		{"zero trusted height", func() {
			misbehaviour.TrustedSyncCommittee.TrustedHeight = clienttypes.ZeroHeight()
		}, ethereum.ErrInvalidMisbehaviour},
		{"first update before trusted height", func() {
			misbehaviour.UpdateOne.FinalizedHeader.Beacon.Slot = 0
		}, ethereum.ErrInvalidMisbehaviour},
		{"trusted height above both updates", func() {
			misbehaviour.TrustedSyncCommittee.TrustedHeight = clienttypes.NewHeight(0, 9)
		}, ethereum.ErrInvalidMisbehaviour},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			misbehaviour = s.chain.Misbehaviour(initialSlot, 8)

			tc.malleate()

			err := misbehaviour.ValidateBasic()
			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(clienttypes.NewHeight(0, 8), misbehaviour.GetHeight())
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *EthereumTestSuite) TestDecodeClientMessage() {
	header := s.chain.Update(initialSlot, 5, ethtesting.UpdateOptions{})
	misbehaviour := s.chain.Misbehaviour(initialSlot, 8)

	msg, err := ethereum.DecodeClientMessage(ethtesting.MarshalClientMessage(header))
	s.Require().NoError(err)
	s.Require().IsType(&ethereum.Header{}, msg)
	s.Require().Equal(header.GetHeight(), msg.(*ethereum.Header).GetHeight())

	msg, err = ethereum.DecodeClientMessage(ethtesting.MarshalClientMessage(misbehaviour))
	s.Require().NoError(err)
	s.Require().IsType(&ethereum.Misbehaviour{}, msg)
	s.Require().Equal(misbehaviour.GetHeight(), msg.(*ethereum.Misbehaviour).GetHeight())

	for _, bz := range [][]byte{nil, []byte("not json"), []byte(`{"unknown_field": 1}`)} {
		_, err = ethereum.DecodeClientMessage(bz)
		s.Require().ErrorIs(err, lcerrors.ErrInvalidType, string(bz))
	}
}
