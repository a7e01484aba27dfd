package ethereum_test

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
	ethtesting "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/testing"
)

func (s *EthereumTestSuite) TestClientStateValidate() {
	var clientState *ethereum.ClientState

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{"success", func() {}, nil},
		{"success: no upgrade path", func() { clientState.UpgradePath = nil }, nil},
		{"zero chain id", func() { clientState.ChainID = 0 }, ethereum.ErrInvalidClientState},
		{"empty genesis validators root", func() { clientState.GenesisValidatorsRoot = common.Hash{} }, ethereum.ErrInvalidClientState},
		{"zero genesis time", func() { clientState.GenesisTime = 0 }, ethereum.ErrInvalidClientState},
		{"short fork version", func() { clientState.ForkParameters.Capella.Version = hexutil.Bytes{0x01} }, ethereum.ErrInvalidClientState},
		{"fork epochs out of order", func() { clientState.ForkParameters.Capella.Epoch = 10 }, ethereum.ErrInvalidClientState},
		{"zero seconds per slot", func() { clientState.SecondsPerSlot = 0 }, ethereum.ErrInvalidClientState},
		{"unsupported sync committee size", func() { clientState.SyncCommitteeSize = 33 }, ethereum.ErrInvalidClientState},
		{"zero minimum participants", func() { clientState.MinSyncCommitteeParticipants = 0 }, ethereum.ErrInvalidClientState},
		{"minimum participants above committee size", func() { clientState.MinSyncCommitteeParticipants = 33 }, ethereum.ErrInvalidClientState},
		{"non zero revision", func() { clientState.LatestHeight = clienttypes.NewHeight(1, 1) }, ethereum.ErrInvalidClientState},
		{"zero latest height", func() { clientState.LatestHeight = clienttypes.ZeroHeight() }, ethereum.ErrInvalidClientState},
		{"latest slot before genesis slot", func() { clientState.GenesisSlot = 2 }, ethereum.ErrInvalidClientState},
		{"zero trusting period", func() { clientState.TrustingPeriod = 0 }, ethereum.ErrInvalidClientState},
		{"zero unbonding period", func() { clientState.UnbondingPeriod = 0 }, ethereum.ErrInvalidClientState},
		{"trusting period equal to unbonding period", func() { clientState.TrustingPeriod = clientState.UnbondingPeriod }, ethereum.ErrInvalidClientState},
		{"empty contract address", func() { clientState.IbcContractAddress = common.Address{} }, ethereum.ErrInvalidClientState},
		{"empty upgrade path segment", func() { clientState.UpgradePath = []string{"upgrade", ""} }, ethereum.ErrInvalidClientState},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			clientState = s.chain.ClientState(initialSlot)

			tc.malleate()

			err := clientState.Validate()
			if tc.expErr == nil {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *EthereumTestSuite) TestConsensusStateValidateBasic() {
	var consState *ethereum.ConsensusState

	// the latest block time in seconds whose nanosecond form fits in an int64
	maxTimestamp := uint64(math.MaxInt64 / int64(time.Second))

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{"success", func() {}, nil},
		{"success: without next sync committee", func() { consState.NextSyncCommittee = common.Hash{} }, nil},
		{"success: maximum timestamp", func() { consState.Timestamp = maxTimestamp }, nil},
		{"empty state root", func() { consState.StateRoot = common.Hash{} }, ethereum.ErrInvalidConsensusState},
		{"empty storage root", func() { consState.StorageRoot = common.Hash{} }, ethereum.ErrInvalidConsensusState},
		{"zero timestamp", func() { consState.Timestamp = 0 }, ethereum.ErrInvalidConsensusState},
		{"timestamp overflows nanoseconds", func() { consState.Timestamp = maxTimestamp + 1 }, ethereum.ErrInvalidConsensusState},
		{"maximum timestamp", func() { consState.Timestamp = math.MaxUint64 }, ethereum.ErrInvalidConsensusState},
		{"empty current sync committee", func() { consState.CurrentSyncCommittee = common.Hash{} }, ethereum.ErrInvalidConsensusState},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			consState = s.chain.ConsensusState(initialSlot)

			tc.malleate()

			err := consState.ValidateBasic()
			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(uint64(consState.GetTime().UnixNano()), consState.GetTimestamp())
				s.Require().Equal(consState.Timestamp*uint64(time.Second), consState.GetTimestamp())
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *EthereumTestSuite) TestZeroCustomFields() {
	clientState := s.chain.ClientState(initialSlot)
	clientState.FrozenHeight = clienttypes.NewHeight(0, 1)

	zeroed := clientState.ZeroCustomFields()
	s.Require().True(zeroed.LatestHeight.IsZero())
	s.Require().True(zeroed.FrozenHeight.IsZero())
	s.Require().Zero(zeroed.TrustingPeriod)
	s.Require().Zero(zeroed.MaxClockDrift)
	s.Require().Nil(zeroed.Checksum)
	s.Require().Equal(clientState.UnbondingPeriod, zeroed.UnbondingPeriod)
	s.Require().Equal(clientState.ForkParameters, zeroed.ForkParameters)

	// the original is left untouched
	s.Require().Equal(clienttypes.NewHeight(0, initialSlot), clientState.LatestHeight)
	s.Require().Equal(uint64(ethtesting.DefaultTrustingPeriod), clientState.TrustingPeriod)
}

func (s *EthereumTestSuite) TestForkParameters() {
	forks := ethtesting.DefaultForkParameters()
	forks.Capella.Epoch = 2
	forks.Deneb.Epoch = 4
	forks.Electra.Epoch = 6
	s.Require().NoError(forks.Validate())

	testCases := []struct {
		epoch      uint64
		expFork    beacon.Fork
		expVersion [4]byte
	}{
		{0, beacon.Bellatrix, [4]byte{0x30, 0x00, 0x00, 0x38}},
		{1, beacon.Bellatrix, [4]byte{0x30, 0x00, 0x00, 0x38}},
		{2, beacon.Capella, [4]byte{0x40, 0x00, 0x00, 0x38}},
		{5, beacon.Deneb, [4]byte{0x50, 0x00, 0x00, 0x38}},
		{6, beacon.Electra, [4]byte{0x60, 0x00, 0x00, 0x38}},
		{1 << 40, beacon.Electra, [4]byte{0x60, 0x00, 0x00, 0x38}},
	}

	for _, tc := range testCases {
		s.Require().Equal(tc.expFork, forks.ForkAtEpoch(tc.epoch), tc.epoch)
		s.Require().Equal(tc.expVersion, forks.ForkVersionAtEpoch(tc.epoch), tc.epoch)
	}

	unscheduled := ethtesting.DefaultForkParameters()
	s.Require().Equal(beacon.Deneb, unscheduled.ForkAtEpoch(1<<40))

	unscheduled.GenesisForkVersion = nil
	s.Require().ErrorIs(unscheduled.Validate(), ethereum.ErrInvalidClientState)
}

// TestElectraUpdate checks updates across the Electra fork, which moves the
// finality and sync committee gindices of the attested state.
func (s *EthereumTestSuite) TestElectraUpdate() {
	s.chain.ForkParameters.Electra.Epoch = 1

	s.instantiate()
	s.Require().Equal(uint64(1), s.clientState().ForkParameters.Electra.Epoch)

	// attested in Deneb
	s.update(initialSlot, ethtesting.SlotsPerEpoch-3)
	// attested and signed in Electra
	s.update(ethtesting.SlotsPerEpoch-3, ethtesting.SlotsPerEpoch+3)

	s.Require().Equal(clienttypes.NewHeight(0, ethtesting.SlotsPerEpoch+3), s.clientState().LatestHeight)
}
