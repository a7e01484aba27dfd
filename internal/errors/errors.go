package errors

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace of the contract request layer.
const Codespace = "ethereum-contract"

var (
	// ErrUnknownRequest is used when a request does not match any known variant.
	ErrUnknownRequest = errorsmod.Register(Codespace, 2, "unknown request")

	// ErrInvalidRequest defines an error where the request contains
	// invalid data.
	ErrInvalidRequest = errorsmod.Register(Codespace, 3, "invalid request")

	// ErrInvalidType defines an error an invalid type.
	ErrInvalidType = errorsmod.Register(Codespace, 4, "invalid type")

	// ErrPackAny defines an error when packing a protobuf message to Any fails.
	ErrPackAny = errorsmod.Register(Codespace, 5, "failed packing protobuf message to Any")

	// ErrUnpackAny defines an error when unpacking a protobuf message from Any fails.
	ErrUnpackAny = errorsmod.Register(Codespace, 6, "failed unpacking protobuf message from Any")

	// ErrLogic defines an internal logic error, e.g. an invariant or assertion
	// that is violated. It is a programmer error, not a user-facing error.
	ErrLogic = errorsmod.Register(Codespace, 7, "internal logic error")

	// ErrNotFound defines an error when requested entity doesn't exist in the state.
	ErrNotFound = errorsmod.Register(Codespace, 8, "not found")

	// ErrUnsupported is used for entry points the contract does not serve.
	ErrUnsupported = errorsmod.Register(Codespace, 9, "unsupported entry point")
)
