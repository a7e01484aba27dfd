package ethereum

import (
	errorsmod "cosmossdk.io/errors"
)

// IBC ethereum client sentinel errors
var (
	ErrInvalidHeader           = errorsmod.Register(ModuleName, 2, "invalid header")
	ErrStaleHeader             = errorsmod.Register(ModuleName, 3, "header height superseded by a later trusted height")
	ErrClientFrozen            = errorsmod.Register(ModuleName, 4, "client is frozen")
	ErrClientExpired           = errorsmod.Register(ModuleName, 5, "client is expired")
	ErrInvalidProof            = errorsmod.Register(ModuleName, 6, "invalid proof")
	ErrVerificationFailed      = errorsmod.Register(ModuleName, 7, "proof verification failed")
	ErrDelayPeriodNotElapsed   = errorsmod.Register(ModuleName, 8, "packet-specified delay period has not been reached")
	ErrStore                   = errorsmod.Register(ModuleName, 9, "client store failure")
	ErrMisbehaviourDetected    = errorsmod.Register(ModuleName, 10, "misbehaviour detected")
	ErrInvalidClientState      = errorsmod.Register(ModuleName, 11, "invalid client state")
	ErrInvalidConsensusState   = errorsmod.Register(ModuleName, 12, "invalid consensus state")
	ErrConsensusStateNotFound  = errorsmod.Register(ModuleName, 13, "consensus state not found")
	ErrInvalidMisbehaviour     = errorsmod.Register(ModuleName, 14, "invalid misbehaviour")
	ErrInvalidUpgrade          = errorsmod.Register(ModuleName, 15, "invalid upgrade")
	ErrInvalidSubstitute       = errorsmod.Register(ModuleName, 16, "invalid substitute client")
	ErrProcessedTimeNotFound   = errorsmod.Register(ModuleName, 17, "processed time not found")
	ErrProcessedHeightNotFound = errorsmod.Register(ModuleName, 18, "processed height not found")
	ErrInvalidSyncCommittee    = errorsmod.Register(ModuleName, 19, "invalid sync committee")
)
