package cli

import (
	"os"
	"path/filepath"
	"time"

	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"

	"cosmossdk.io/store/dbadapter"
	"cosmossdk.io/store/tracekv"
	storetypes "cosmossdk.io/store/types"

	dbm "github.com/cosmos/cosmos-db"

	host "github.com/cosmos/ibc-go/v10/modules/core/24-host"

	internaltypes "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/types"
)

// clientStore is the persistent store of one client.
type clientStore struct {
	storetypes.KVStore
	db dbm.DB
}

func (s clientStore) Close() error {
	return s.db.Close()
}

// openClientStore opens the database of clientID under <home>/data.
func (a *app) openClientStore(clientID string) (*clientStore, error) {
	if err := host.ClientIdentifierValidator(clientID); err != nil {
		return nil, err
	}

	dir := filepath.Join(a.v.GetString(flagHome), "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := dbm.NewDB(clientID, dbm.BackendType(a.v.GetString(flagDBBackend)), dir)
	if err != nil {
		return nil, err
	}

	var store storetypes.KVStore = &dbadapter.Store{DB: db}
	if a.v.GetBool(flagTrace) {
		store = tracekv.NewStore(store, os.Stderr, storetypes.TraceContext{"client_id": clientID})
	}

	return &clientStore{KVStore: store, db: db}, nil
}

// withClientStore runs fn against the store of clientID in the shape the contract expects.
func (a *app) withClientStore(clientID string, fn func(store wasmvmtypes.KVStore) error) error {
	store, err := a.openClientStore(clientID)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(internaltypes.NewStoreAdapter(store))
}

// withRecoveryStore exposes the subject and substitute stores under the
// prefixes a client store migration reads.
func (a *app) withRecoveryStore(subjectID, substituteID string, fn func(store wasmvmtypes.KVStore) error) error {
	subject, err := a.openClientStore(subjectID)
	if err != nil {
		return err
	}
	defer subject.Close()

	substitute, err := a.openClientStore(substituteID)
	if err != nil {
		return err
	}
	defer substitute.Close()

	return fn(internaltypes.NewStoreAdapter(internaltypes.NewClientRecoveryStore(subject, substitute)))
}

// env returns the host environment the contract is called with.
func (a *app) env() (wasmvmtypes.Env, error) {
	now := time.Now().UTC()
	if s := a.v.GetString(flagHostTime); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return wasmvmtypes.Env{}, err
		}
		now = t.UTC()
	}

	return wasmvmtypes.Env{
		Block: wasmvmtypes.BlockInfo{
			Height:  a.v.GetUint64(flagHostHeight),
			Time:    wasmvmtypes.Uint64(now.UnixNano()),
			ChainID: a.v.GetString(flagHostChainID),
		},
	}, nil
}
