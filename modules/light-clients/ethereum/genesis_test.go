package ethereum_test

import (
	"encoding/json"

	"cosmossdk.io/store/dbadapter"

	dbm "github.com/cosmos/cosmos-db"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	commitmenttypesv2 "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types/v2"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
	internaltypes "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/types"
)

func (s *EthereumTestSuite) exportMetadata() []clienttypes.GenesisMetadata {
	bz, err := s.query(s.env(initialSlot), ethereum.QueryMsg{ExportMetadata: &ethereum.ExportMetadataMsg{}})
	s.Require().NoError(err)

	var result ethereum.ExportMetadataResult
	s.Require().NoError(json.Unmarshal(bz, &result))
	return result.GenesisMetadata
}

func (s *EthereumTestSuite) TestExportMetadata() {
	s.instantiate()
	s.update(initialSlot, 5)
	s.update(5, 9)

	metadata := s.exportMetadata()

	// the client state, then four entries per consensus state in ascending height order
	expKeys := [][]byte{ethereum.ClientStateKey()}
	for _, slot := range []uint64{initialSlot, 5, 9} {
		height := clienttypes.NewHeight(0, slot)
		expKeys = append(expKeys,
			ethereum.ConsensusStateKey(height),
			ethereum.ProcessedTimeKey(height),
			ethereum.ProcessedHeightKey(height),
			ethereum.IterationKey(height),
		)
	}

	s.Require().Len(metadata, len(expKeys))
	for i, gm := range metadata {
		s.Require().Equal(expKeys[i], gm.GetKey(), i)
		s.Require().True(ethereum.IsClientStoreKey(gm.GetKey()))
	}

	// every exported entry is exactly what the store holds
	kvs := s.snapshot()
	s.Require().Len(kvs, len(metadata))
	for _, gm := range metadata {
		s.Require().Equal(string(gm.GetValue()), kvs[string(gm.GetKey())])
	}
}

// TestExportImportRoundTrip checks that importing exported metadata into an
// empty store reproduces the client and a byte identical export.
func (s *EthereumTestSuite) TestExportImportRoundTrip() {
	s.chain.Commit([]byte(transferPath), transferCommitment)
	s.instantiate()
	s.update(initialSlot, 5)

	exported := s.exportMetadata()
	original := s.snapshot()

	s.clientStore = &dbadapter.Store{DB: dbm.NewMemDB()}
	s.store = internaltypes.NewStoreAdapter(s.clientStore)

	s.Require().NoError(ethereum.ImportMetadata(s.clientStore, exported))
	s.Require().Equal(original, s.snapshot())
	s.Require().Equal(exported, s.exportMetadata())

	// the imported client keeps verifying proofs and accepting updates
	s.Require().NoError(s.clientState().VerifyMembership(
		s.clientStore, s.hostEnv(10), clienttypes.NewHeight(0, 5), 0, 0,
		s.chain.StorageProof(5, []byte(transferPath)), commitmenttypesv2.NewMerklePath([]byte(transferPath)), transferCommitment,
	))
	s.update(5, 9)
}

func (s *EthereumTestSuite) TestImportMetadata() {
	var metadata []clienttypes.GenesisMetadata

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success", func() {}, nil,
		},
		{
			"failure: store not empty", func() {
				s.instantiate()
			}, lcerrors.ErrInvalidRequest,
		},
		{
			"failure: missing client state", func() {
				metadata = metadata[1:]
			}, lcerrors.ErrInvalidRequest,
		},
		{
			"failure: undecodable client state", func() {
				metadata[0] = clienttypes.NewGenesisMetadata(ethereum.ClientStateKey(), metadata[1].GetValue())
			}, lcerrors.ErrInvalidType,
		},
		{
			"failure: foreign key", func() {
				metadata = append(metadata, clienttypes.NewGenesisMetadata([]byte("checksums"), []byte("value")))
			}, lcerrors.ErrInvalidRequest,
		},
		{
			"failure: empty value", func() {
				metadata[1] = clienttypes.NewGenesisMetadata(metadata[1].GetKey(), nil)
			}, lcerrors.ErrInvalidRequest,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.instantiate()
			s.update(initialSlot, 5)
			metadata = s.exportMetadata()

			s.SetupTest()

			tc.malleate()

			err := ethereum.ImportMetadata(s.clientStore, metadata)

			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(clienttypes.NewHeight(0, 5), s.clientState().LatestHeight)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *EthereumTestSuite) TestIsClientStoreKey() {
	height := clienttypes.NewHeight(0, 5)

	testCases := []struct {
		name  string
		key   []byte
		expOk bool
	}{
		{"client state", ethereum.ClientStateKey(), true},
		{"consensus state", ethereum.ConsensusStateKey(height), true},
		{"processed time", ethereum.ProcessedTimeKey(height), true},
		{"processed height", ethereum.ProcessedHeightKey(height), true},
		{"iteration key", ethereum.IterationKey(height), true},
		{"truncated iteration key", ethereum.IterationKey(height)[:30], false},
		{"unknown consensus state suffix", append(ethereum.ConsensusStateKey(height), []byte("/other")...), false},
		{"malformed height", []byte("consensusStates/five"), false},
		{"checksum", []byte("checksum"), false},
		{"subject client state", append([]byte("subject/"), ethereum.ClientStateKey()...), false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Require().Equal(tc.expOk, ethereum.IsClientStoreKey(tc.key))
		})
	}
}
