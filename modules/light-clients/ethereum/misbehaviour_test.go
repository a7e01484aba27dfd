package ethereum_test

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	"github.com/cosmos/ibc-go/v10/modules/core/exported"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
	ethtesting "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/testing"
)

func (s *EthereumTestSuite) TestDetectMisbehaviour() {
	height := clienttypes.NewHeight(0, 10)
	candidate := &ethereum.ConsensusState{
		Slot:                 10,
		StateRoot:            common.Hash{0x01},
		StorageRoot:          common.Hash{0x02},
		Timestamp:            100,
		CurrentSyncCommittee: common.Hash{0x03},
		NextSyncCommittee:    common.Hash{0x04},
	}

	withTimestamp := func(timestamp uint64) *ethereum.ConsensusState {
		consState := *candidate
		consState.Timestamp = timestamp
		return &consState
	}

	different := *candidate
	different.StorageRoot = common.Hash{0x05}

	withoutNext := *candidate
	withoutNext.NextSyncCommittee = common.Hash{}

	otherNext := *candidate
	otherNext.NextSyncCommittee = common.Hash{0x06}

	testCases := []struct {
		name    string
		stored  ethereum.NeighbourConsensusStates
		expKind ethereum.MisbehaviourKind
	}{
		{"no stored consensus states", ethereum.NeighbourConsensusStates{}, ethereum.MisbehaviourNone},
		{"identical consensus state stored", ethereum.NeighbourConsensusStates{Existing: withTimestamp(100)}, ethereum.MisbehaviourNone},
		{"different consensus state stored", ethereum.NeighbourConsensusStates{Existing: &different}, ethereum.MisbehaviourFork},
		{"stored consensus state without next sync committee", ethereum.NeighbourConsensusStates{Existing: &withoutNext}, ethereum.MisbehaviourNone},
		{"different next sync committee stored", ethereum.NeighbourConsensusStates{Existing: &otherNext}, ethereum.MisbehaviourFork},
		{"different timestamp stored", ethereum.NeighbourConsensusStates{Existing: withTimestamp(101)}, ethereum.MisbehaviourFork},
		{
			"timestamp between neighbours",
			ethereum.NeighbourConsensusStates{Previous: withTimestamp(99), Next: withTimestamp(101)},
			ethereum.MisbehaviourNone,
		},
		{"timestamp equal to previous", ethereum.NeighbourConsensusStates{Previous: withTimestamp(100)}, ethereum.MisbehaviourTimeViolation},
		{"timestamp before previous", ethereum.NeighbourConsensusStates{Previous: withTimestamp(150)}, ethereum.MisbehaviourTimeViolation},
		{"timestamp equal to next", ethereum.NeighbourConsensusStates{Next: withTimestamp(100)}, ethereum.MisbehaviourTimeViolation},
		{"timestamp after next", ethereum.NeighbourConsensusStates{Next: withTimestamp(50)}, ethereum.MisbehaviourTimeViolation},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			verdict := ethereum.DetectMisbehaviour(tc.stored, height, candidate)
			s.Require().Equal(tc.expKind, verdict.Kind)
			s.Require().Equal(tc.expKind != ethereum.MisbehaviourNone, verdict.Found())
			if verdict.Found() {
				s.Require().Equal(height, verdict.Height)
				s.Require().ErrorIs(verdict.Err(), ethereum.ErrMisbehaviourDetected)
				s.Require().ErrorContains(verdict.Err(), tc.expKind.String())
			} else {
				s.Require().NoError(verdict.Err())
			}
		})
	}

	s.Require().Equal("none", ethereum.MisbehaviourNone.String())
	s.Require().Equal("fork", ethereum.MisbehaviourFork.String())
	s.Require().Equal("time_violation", ethereum.MisbehaviourTimeViolation.String())
}

func (s *EthereumTestSuite) TestVerifyMisbehaviour() {
	var misbehaviour *ethereum.Misbehaviour

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success: conflicting finalized headers", func() {}, nil,
		},
		{
			"failure: identical updates", func() {
				misbehaviour.UpdateTwo = misbehaviour.UpdateOne
			}, ethereum.ErrInvalidMisbehaviour,
		},
		{
			"failure: consecutive consistent updates", func() {
				misbehaviour.UpdateTwo = s.chain.Update(initialSlot, 6, ethtesting.UpdateOptions{}).ConsensusUpdate
			}, ethereum.ErrInvalidMisbehaviour,
		},
		{
			"failure: update with invalid signature", func() {
				misbehaviour.UpdateTwo.AttestedHeader.Beacon.ProposerIndex++
			}, ethereum.ErrInvalidMisbehaviour,
		},
		{
			"failure: update before trusted height", func() {
				misbehaviour.TrustedSyncCommittee.TrustedHeight = clienttypes.NewHeight(0, 5)
				misbehaviour.UpdateOne = s.chain.Update(initialSlot, 3, ethtesting.UpdateOptions{}).ConsensusUpdate
			}, ethereum.ErrInvalidMisbehaviour,
		},
		{
			"failure: trusted consensus state not found", func() {
				misbehaviour.TrustedSyncCommittee.TrustedHeight = clienttypes.NewHeight(0, 2)
			}, ethereum.ErrConsensusStateNotFound,
		},
		{
			"failure: untrusted sync committee", func() {
				misbehaviour.TrustedSyncCommittee.CurrentSyncCommittee = s.chain.SyncCommittee(4)
			}, ethereum.ErrInvalidMisbehaviour,
		},
		{
			"failure: client frozen", func() {
				clientState := s.clientState()
				clientState.FrozenHeight = clienttypes.NewHeight(0, initialSlot)
				s.Require().NoError(ethereum.SetClientState(s.clientStore, clientState))
			}, ethereum.ErrClientFrozen,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.instantiate()
			s.update(initialSlot, 5)

			misbehaviour = s.chain.Misbehaviour(initialSlot, 8)

			tc.malleate()

			env := s.hostEnv(12)
			clientState := s.clientState()
			err := clientState.VerifyClientMessage(s.clientStore, env, misbehaviour)

			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().True(clientState.CheckForMisbehaviour(s.clientStore, misbehaviour).Found())
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *EthereumTestSuite) TestCheckForMisbehaviour() {
	s.instantiate()
	s.update(initialSlot, 5)

	clientState := s.clientState()

	testCases := []struct {
		name     string
		msg      ethereum.ClientMessage
		expFound bool
	}{
		{
			"header for a new height", s.chain.Update(5, 9, ethtesting.UpdateOptions{}), false,
		},
		{
			"header identical to the stored consensus state", s.chain.Update(initialSlot, 5, ethtesting.UpdateOptions{}), false,
		},
		{
			"header conflicting with the stored consensus state", s.chain.Update(initialSlot, 5, ethtesting.UpdateOptions{Salt: []byte("fork")}), true,
		},
		{
			"header with unknown trusted height", func() *ethereum.Header {
				header := s.chain.Update(initialSlot, 5, ethtesting.UpdateOptions{Salt: []byte("fork")})
				header.TrustedSyncCommittee.TrustedHeight = clienttypes.NewHeight(0, 3)
				return header
			}(), false,
		},
		{
			"misbehaviour with conflicting updates", s.chain.Misbehaviour(initialSlot, 5), true,
		},
		{
			"misbehaviour with identical updates", func() *ethereum.Misbehaviour {
				misbehaviour := s.chain.Misbehaviour(initialSlot, 5)
				misbehaviour.UpdateTwo = misbehaviour.UpdateOne
				return misbehaviour
			}(), false,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Require().Equal(tc.expFound, clientState.CheckForMisbehaviour(s.clientStore, tc.msg).Found())
		})
	}
}

func (s *EthereumTestSuite) TestUpdateStateOnMisbehaviour() {
	s.instantiate()
	s.update(initialSlot, 5)

	misbehaviour := ethtesting.MarshalClientMessage(s.chain.Misbehaviour(5, 8))

	bz, err := s.query(s.env(12), ethereum.QueryMsg{
		VerifyClientMessage: &ethereum.VerifyClientMessageMsg{ClientMessage: misbehaviour},
	})
	s.Require().NoError(err)
	s.Require().JSONEq(`{}`, string(bz))

	_, err = s.sudo(s.env(12), ethereum.SudoMsg{
		UpdateStateOnMisbehaviour: &ethereum.UpdateStateOnMisbehaviourMsg{ClientMessage: misbehaviour},
	})
	s.Require().NoError(err)
	s.Require().Equal(clienttypes.NewHeight(0, 8), s.clientState().FrozenHeight)
	s.Require().Equal(exported.Frozen.String(), s.status(s.env(12)))

	// the first frozen height is kept
	_, err = s.sudo(s.env(12), ethereum.SudoMsg{
		UpdateStateOnMisbehaviour: &ethereum.UpdateStateOnMisbehaviourMsg{
			ClientMessage: ethtesting.MarshalClientMessage(s.chain.Misbehaviour(5, 10)),
		},
	})
	s.Require().NoError(err)
	s.Require().Equal(clienttypes.NewHeight(0, 8), s.clientState().FrozenHeight)

	// verification of further messages fails once frozen
	_, err = s.query(s.env(12), ethereum.QueryMsg{
		VerifyClientMessage: &ethereum.VerifyClientMessageMsg{ClientMessage: misbehaviour},
	})
	s.Require().ErrorIs(err, ethereum.ErrClientFrozen)

	bz, err = s.query(s.env(12), ethereum.QueryMsg{ExportMetadata: &ethereum.ExportMetadataMsg{}})
	s.Require().NoError(err)

	var result ethereum.ExportMetadataResult
	s.Require().NoError(json.Unmarshal(bz, &result))
	s.Require().NotEmpty(result.GenesisMetadata)
}
