package ethereum

import (
	"bytes"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/store/prefix"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	"github.com/cosmos/ibc-go/v10/modules/core/exported"

	internaltypes "github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/types"
)

// MigrateClientStore will try to update the subject client with the state of the
// substitute client. The store holds both clients under the subject and substitute prefixes.
//
// The following must always be true:
//   - The substitute client is active
//   - The subject and substitute client states match in all parameters (except frozen height, latest height,
//     trusting period and max clock drift)
//
// The subject client is unfrozen by resetting the FrozenHeight to the zero Height.
func MigrateClientStore(store storetypes.KVStore, env hostEnv) (*ClientState, error) {
	subjectClientStore := prefix.NewStore(store, internaltypes.SubjectPrefix)
	substituteClientStore := prefix.NewStore(store, internaltypes.SubstitutePrefix)

	subjectClientState, err := GetClientState(subjectClientStore)
	if err != nil {
		return nil, errorsmod.Wrap(err, "subject client state")
	}

	substituteClientState, err := GetClientState(substituteClientStore)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidSubstitute, err.Error())
	}

	if !isMatchingClientState(*subjectClientState, *substituteClientState) {
		return nil, errorsmod.Wrap(ErrInvalidSubstitute, "subject client state does not match substitute client state")
	}

	if status := substituteClientState.status(substituteClientStore, env.Time); status != exported.Active {
		return nil, errorsmod.Wrapf(ErrInvalidSubstitute, "substitute client is not %s, status is %s", exported.Active, status)
	}

	height := substituteClientState.LatestHeight

	consensusState, err := GetConsensusState(substituteClientStore, height)
	if err != nil {
		return nil, errorsmod.Wrap(err, "unable to retrieve latest consensus state for substitute client")
	}

	processedTime, found := GetProcessedTime(substituteClientStore, height)
	if !found {
		return nil, errorsmod.Wrap(ErrProcessedTimeNotFound, "unable to retrieve processed time for substitute client latest height")
	}

	processedHeight, found := GetProcessedHeight(substituteClientStore, height)
	if !found {
		return nil, errorsmod.Wrap(ErrProcessedHeightNotFound, "unable to retrieve processed height for substitute client latest height")
	}

	subjectClientState.LatestHeight = height
	subjectClientState.TrustingPeriod = substituteClientState.TrustingPeriod
	subjectClientState.FrozenHeight = clienttypes.ZeroHeight()

	if err := setClientState(subjectClientStore, subjectClientState); err != nil {
		return nil, err
	}

	if err := storeConsensusState(subjectClientStore, consensusState, height, processedTime, processedHeight); err != nil {
		return nil, err
	}

	return subjectClientState, nil
}

// isMatchingClientState returns true if all the client state parameters match
// except for frozen height, latest height, trusting period and max clock drift.
func isMatchingClientState(subject, substitute ClientState) bool {
	subjectBz, err := json.Marshal(subject.ZeroCustomFields())
	if err != nil {
		return false
	}

	substituteBz, err := json.Marshal(substitute.ZeroCustomFields())
	if err != nil {
		return false
	}

	return bytes.Equal(subjectBz, substituteBz)
}
