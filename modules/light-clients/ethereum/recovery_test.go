package ethereum_test

import (
	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"

	"cosmossdk.io/store/prefix"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	"github.com/cosmos/ibc-go/v10/modules/core/exported"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
	internaltypes "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/types"
	ethtesting "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/testing"
)

const substituteSlot = 20

func (s *EthereumTestSuite) TestMigrateClientStore() {
	var (
		subjectStore    storetypes.KVStore
		substituteStore storetypes.KVStore
		substitute      *ethereum.ClientState
	)

	instantiateIn := func(store storetypes.KVStore, clientState *ethereum.ClientState, consState *ethereum.ConsensusState) {
		_, err := s.contract.Instantiate(
			s.env(consState.Slot), wasmvmtypes.MessageInfo{}, internaltypes.NewStoreAdapter(store), s.instantiateMsg(clientState, consState),
		)
		s.Require().NoError(err)
	}

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success", func() {}, nil,
		},
		{
			"success: substitute with a different trusting period", func() {
				substitute.TrustingPeriod = ethtesting.DefaultTrustingPeriod / 2
			}, nil,
		},
		{
			"failure: substitute with different chain parameters", func() {
				substitute.ChainID++
			}, ethereum.ErrInvalidSubstitute,
		},
		{
			"failure: substitute frozen", func() {
				substitute.FrozenHeight = clienttypes.NewHeight(0, substituteSlot)
			}, ethereum.ErrInvalidSubstitute,
		},
		{
			"failure: substitute not found", func() {
				substitute = nil
			}, ethereum.ErrInvalidSubstitute,
		},
		{
			"failure: subject not found", func() {
				subjectStore.Delete(ethereum.ClientStateKey())
			}, lcerrors.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()

			subjectStore = prefix.NewStore(s.clientStore, internaltypes.SubjectPrefix)
			substituteStore = prefix.NewStore(s.clientStore, internaltypes.SubstitutePrefix)

			// the subject is frozen
			instantiateIn(subjectStore, s.chain.ClientState(initialSlot), s.chain.ConsensusState(initialSlot))
			subject, err := ethereum.GetClientState(subjectStore)
			s.Require().NoError(err)
			s.Require().NoError(subject.UpdateStateOnMisbehaviour(subjectStore, s.chain.Misbehaviour(initialSlot, 5)))

			substitute = s.chain.ClientState(substituteSlot)

			tc.malleate()

			if substitute != nil {
				// instantiation rejects frozen clients
				frozenHeight := substitute.FrozenHeight
				substitute.FrozenHeight = clienttypes.ZeroHeight()
				instantiateIn(substituteStore, substitute, s.chain.ConsensusState(substituteSlot))

				if !frozenHeight.IsZero() {
					substitute.FrozenHeight = frozenHeight
					substitute.Checksum = ethtesting.Checksum[:]
					s.Require().NoError(ethereum.SetClientState(substituteStore, substitute))
				}
			}

			_, err = s.sudo(s.env(substituteSlot+2), ethereum.SudoMsg{MigrateClientStore: &ethereum.MigrateClientStoreMsg{}})

			if tc.expErr == nil {
				s.Require().NoError(err)

				subject, err := ethereum.GetClientState(subjectStore)
				s.Require().NoError(err)
				s.Require().True(subject.FrozenHeight.IsZero())
				s.Require().Equal(clienttypes.NewHeight(0, substituteSlot), subject.LatestHeight)
				s.Require().Equal(substitute.TrustingPeriod, subject.TrustingPeriod)
				s.Require().Equal(exported.Active, subject.Status(subjectStore, ethtesting.TimeAtSlot(substituteSlot+2)))

				consState, err := ethereum.GetConsensusState(subjectStore, clienttypes.NewHeight(0, substituteSlot))
				s.Require().NoError(err)
				s.Require().Equal(s.chain.ConsensusState(substituteSlot), consState)

				processedTime, ok := ethereum.GetProcessedTime(subjectStore, clienttypes.NewHeight(0, substituteSlot))
				s.Require().True(ok)
				substituteProcessedTime, ok := ethereum.GetProcessedTime(substituteStore, clienttypes.NewHeight(0, substituteSlot))
				s.Require().True(ok)
				s.Require().Equal(substituteProcessedTime, processedTime)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}
