package ethereum

import (
	"encoding/json"
	"time"

	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/store/cachekv"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	"github.com/cosmos/ibc-go/v10/modules/core/exported"

	lcerrors "github.com/cosmos/ethereum-light-client/internal/errors"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/telemetry"
	internaltypes "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/types"
)

// Contract implements the entry points through which the host drives the
// ethereum light client. Every sudo call runs against a cached view of the
// host store that is only written back when the call succeeds.
type Contract struct {
	logger log.Logger
}

// NewContract creates a new Contract instance.
func NewContract(logger log.Logger) *Contract {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Contract{
		logger: logger.With("module", "x/"+ModuleName),
	}
}

// Logger returns the contract logger.
func (c Contract) Logger() log.Logger {
	return c.logger
}

// newHostEnv derives the host time and height from the host environment.
func newHostEnv(env wasmvmtypes.Env) hostEnv {
	return hostEnv{
		Time:   time.Unix(0, int64(env.Block.Time)).UTC(),
		Height: clienttypes.NewHeight(clienttypes.ParseChainID(env.Block.ChainID), env.Block.Height),
	}
}

// Instantiate creates the client from its initial client and consensus states.
func (c Contract) Instantiate(env wasmvmtypes.Env, _ wasmvmtypes.MessageInfo, store wasmvmtypes.KVStore, msg []byte) (*wasmvmtypes.Response, error) {
	var payload InstantiateMessage
	if err := json.Unmarshal(msg, &payload); err != nil {
		return nil, errorsmod.Wrapf(lcerrors.ErrInvalidRequest, "failed to decode instantiate message: %v", err)
	}

	clientState, err := decodeClientState(payload.ClientState)
	if err != nil {
		return nil, err
	}
	clientState.Checksum = payload.Checksum

	consensusState, err := decodeConsensusState(payload.ConsensusState)
	if err != nil {
		return nil, err
	}

	clientEnv := newHostEnv(env)
	cache := cachekv.NewStore(internaltypes.NewHostStore(store))

	if len(cache.Get(ClientStateKey())) != 0 {
		return nil, errorsmod.Wrap(lcerrors.ErrInvalidRequest, "client already instantiated")
	}

	if err := clientState.initialize(cache, consensusState, clientEnv.timestamp(), clientEnv.Height); err != nil {
		c.logger.Error("failed to instantiate client", "error", err)
		return nil, err
	}

	cache.Write()
	c.logger.Info("client instantiated", "height", clientState.LatestHeight.String(), "chain-id", clientState.ChainID)

	return &wasmvmtypes.Response{}, nil
}

// Sudo executes a state transition. The host store is left untouched when an error is returned.
func (c Contract) Sudo(env wasmvmtypes.Env, store wasmvmtypes.KVStore, msg []byte) (*wasmvmtypes.Response, error) {
	var sudoMsg SudoMsg
	if err := decodeStrict(msg, &sudoMsg); err != nil {
		return nil, errorsmod.Wrapf(lcerrors.ErrInvalidRequest, "failed to decode sudo message: %v", err)
	}

	payload, err := sudoMsg.payload()
	if err != nil {
		return nil, err
	}

	cache := cachekv.NewStore(internaltypes.NewHostStore(store))
	result, err := c.sudo(newHostEnv(env), cache, payload)
	if err != nil {
		c.logger.Debug("sudo call failed", "msg", payload, "error", err)
		return nil, err
	}

	cache.Write()

	bz, err := json.Marshal(result)
	if err != nil {
		return nil, errorsmod.Wrapf(lcerrors.ErrLogic, "failed to encode sudo result: %v", err)
	}

	return &wasmvmtypes.Response{Data: bz}, nil
}

func (c Contract) sudo(env hostEnv, store storetypes.KVStore, payload sudoPayload) (any, error) {
	switch msg := payload.(type) {
	case *UpdateStateMsg:
		return c.updateState(env, store, msg)
	case *UpdateStateOnMisbehaviourMsg:
		return c.updateStateOnMisbehaviour(store, msg)
	case *VerifyUpgradeAndUpdateStateMsg:
		return c.verifyUpgradeAndUpdateState(env, store, msg)
	case *VerifyMembershipMsg:
		return c.verifyMembership(env, store, msg)
	case *VerifyNonMembershipMsg:
		return c.verifyNonMembership(env, store, msg)
	case *MigrateClientStoreMsg:
		return c.migrateClientStore(env, store)
	default:
		return nil, errorsmod.Wrapf(lcerrors.ErrUnknownRequest, "unknown sudo message %T", payload)
	}
}

// Query answers a read only request. Queries never modify the host store.
func (c Contract) Query(env wasmvmtypes.Env, store wasmvmtypes.KVStore, msg []byte) ([]byte, error) {
	var queryMsg QueryMsg
	if err := decodeStrict(msg, &queryMsg); err != nil {
		return nil, errorsmod.Wrapf(lcerrors.ErrInvalidRequest, "failed to decode query message: %v", err)
	}

	payload, err := queryMsg.payload()
	if err != nil {
		return nil, err
	}

	// writes are discarded
	cache := cachekv.NewStore(internaltypes.NewHostStore(store))
	result, err := c.query(newHostEnv(env), cache, payload)
	if err != nil {
		return nil, err
	}

	bz, err := json.Marshal(result)
	if err != nil {
		return nil, errorsmod.Wrapf(lcerrors.ErrLogic, "failed to encode query result: %v", err)
	}

	return bz, nil
}

func (c Contract) query(env hostEnv, store storetypes.KVStore, payload queryPayload) (any, error) {
	switch msg := payload.(type) {
	case *StatusMsg:
		return c.status(env, store), nil
	case *ExportMetadataMsg:
		return c.exportMetadata(store)
	case *TimestampAtHeightMsg:
		return c.timestampAtHeight(store, msg)
	case *VerifyClientMessageMsg:
		return c.verifyClientMessage(env, store, msg)
	case *CheckForMisbehaviourMsg:
		return c.checkForMisbehaviour(store, msg)
	default:
		return nil, errorsmod.Wrapf(lcerrors.ErrUnknownRequest, "unknown query message %T", payload)
	}
}

func (c Contract) updateState(env hostEnv, store storetypes.KVStore, msg *UpdateStateMsg) (*UpdateStateResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	clientMsg, err := decodeClientMessage(msg.ClientMessage)
	if err != nil {
		return nil, err
	}

	header, ok := clientMsg.(*Header)
	if !ok {
		return nil, errorsmod.Wrapf(lcerrors.ErrInvalidType, "expected %T, got %T", &Header{}, clientMsg)
	}

	heights, verdict, err := clientState.UpdateState(store, env, header)
	if err != nil {
		return nil, err
	}

	if verdict.Found() {
		c.logger.Info("client frozen", "kind", verdict.Kind.String(), "height", verdict.Height.String(), "reason", verdict.Err())
		telemetry.ReportMisbehaviour(ClientType, verdict.Kind.String())
	} else {
		c.logger.Info("client state updated", "heights", heights, "latest-height", clientState.LatestHeight.String())
		telemetry.ReportUpdate(ClientType, "msg", clientState.LatestHeight.RevisionHeight)
	}

	return &UpdateStateResult{Heights: heights}, nil
}

func (c Contract) updateStateOnMisbehaviour(store storetypes.KVStore, msg *UpdateStateOnMisbehaviourMsg) (*EmptyResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	clientMsg, err := decodeClientMessage(msg.ClientMessage)
	if err != nil {
		return nil, err
	}

	if err := clientState.UpdateStateOnMisbehaviour(store, clientMsg); err != nil {
		return nil, err
	}

	c.logger.Info("client frozen due to misbehaviour", "frozen-height", clientState.FrozenHeight.String())
	telemetry.ReportMisbehaviour(ClientType, "submitted")

	return &EmptyResult{}, nil
}

func (c Contract) verifyUpgradeAndUpdateState(env hostEnv, store storetypes.KVStore, msg *VerifyUpgradeAndUpdateStateMsg) (*EmptyResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	upgradedClient, err := decodeClientState(msg.UpgradeClientState)
	if err != nil {
		return nil, err
	}

	upgradedConsState, err := decodeConsensusState(msg.UpgradeConsensusState)
	if err != nil {
		return nil, err
	}

	if err := clientState.VerifyUpgradeAndUpdateState(
		store, env, upgradedClient, upgradedConsState, msg.ProofUpgradeClient, msg.ProofUpgradeConsensusState,
	); err != nil {
		return nil, err
	}

	c.logger.Info("client upgraded", "height", clientState.LatestHeight.String(), "chain-id", clientState.ChainID)
	telemetry.ReportUpdate(ClientType, "upgrade", clientState.LatestHeight.RevisionHeight)

	return &EmptyResult{}, nil
}

func (c Contract) verifyMembership(env hostEnv, store storetypes.KVStore, msg *VerifyMembershipMsg) (*EmptyResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	err = clientState.VerifyMembership(store, env, msg.Height, msg.DelayTimePeriod, msg.DelayBlockPeriod, msg.Proof, msg.MerklePath, msg.Value)
	telemetry.ReportVerification(ClientType, "verify_membership", err == nil)
	if err != nil {
		return nil, err
	}

	return &EmptyResult{}, nil
}

func (c Contract) verifyNonMembership(env hostEnv, store storetypes.KVStore, msg *VerifyNonMembershipMsg) (*EmptyResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	err = clientState.VerifyNonMembership(store, env, msg.Height, msg.DelayTimePeriod, msg.DelayBlockPeriod, msg.Proof, msg.MerklePath)
	telemetry.ReportVerification(ClientType, "verify_non_membership", err == nil)
	if err != nil {
		return nil, err
	}

	return &EmptyResult{}, nil
}

func (c Contract) migrateClientStore(env hostEnv, store storetypes.KVStore) (*EmptyResult, error) {
	clientState, err := MigrateClientStore(store, env)
	if err != nil {
		return nil, err
	}

	c.logger.Info("client recovered from substitute", "height", clientState.LatestHeight.String())

	return &EmptyResult{}, nil
}

func (Contract) status(env hostEnv, store storetypes.KVStore) *StatusResult {
	clientState, err := GetClientState(store)
	if err != nil {
		return &StatusResult{Status: exported.Unknown.String()}
	}

	return &StatusResult{Status: clientState.status(store, env.Time).String()}
}

func (Contract) exportMetadata(store storetypes.KVStore) (*ExportMetadataResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	return &ExportMetadataResult{GenesisMetadata: clientState.ExportMetadata(store)}, nil
}

func (Contract) timestampAtHeight(store storetypes.KVStore, msg *TimestampAtHeightMsg) (*TimestampAtHeightResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	timestamp, err := clientState.getTimestampAtHeight(store, msg.Height)
	if err != nil {
		return nil, err
	}

	return &TimestampAtHeightResult{Timestamp: timestamp}, nil
}

func (Contract) verifyClientMessage(env hostEnv, store storetypes.KVStore, msg *VerifyClientMessageMsg) (*EmptyResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	clientMsg, err := decodeClientMessage(msg.ClientMessage)
	if err != nil {
		return nil, err
	}

	if err := clientState.VerifyClientMessage(store, env, clientMsg); err != nil {
		return nil, err
	}

	return &EmptyResult{}, nil
}

func (Contract) checkForMisbehaviour(store storetypes.KVStore, msg *CheckForMisbehaviourMsg) (*CheckForMisbehaviourResult, error) {
	clientState, err := GetClientState(store)
	if err != nil {
		return nil, err
	}

	clientMsg, err := decodeClientMessage(msg.ClientMessage)
	if err != nil {
		return nil, err
	}

	verdict := clientState.CheckForMisbehaviour(store, clientMsg)
	return &CheckForMisbehaviourResult{FoundMisbehaviour: verdict.Found()}, nil
}

// PruneExpiredConsensusStates removes every expired consensus state except the latest one
// and returns how many were removed.
func (c Contract) PruneExpiredConsensusStates(env wasmvmtypes.Env, store wasmvmtypes.KVStore) (int, error) {
	cache := cachekv.NewStore(internaltypes.NewHostStore(store))

	clientState, err := GetClientState(cache)
	if err != nil {
		return 0, err
	}

	pruned := clientState.PruneAllExpiredConsensusStates(cache, newHostEnv(env).timestamp())
	cache.Write()

	c.logger.Info("pruned expired consensus states", "count", pruned)
	return pruned, nil
}
