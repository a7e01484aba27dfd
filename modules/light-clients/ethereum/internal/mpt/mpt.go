// Package mpt verifies Ethereum Merkle-Patricia trie proofs of accounts and
// contract storage slots.
package mpt

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// MaxProofNodes bounds the number of trie nodes accepted in a single proof.
const MaxProofNodes = 64

var (
	// ErrMalformedProof is returned for proofs that cannot be interpreted at all.
	ErrMalformedProof = errors.New("malformed trie proof")
	// ErrProofMismatch is returned for well formed proofs that do not resolve
	// against the expected root.
	ErrProofMismatch = errors.New("trie proof does not match root")
)

// proofDB indexes proof nodes by their keccak256 hash as trie.VerifyProof expects.
func proofDB(proof [][]byte) (*memorydb.Database, error) {
	if len(proof) == 0 {
		return nil, fmt.Errorf("%w: empty proof", ErrMalformedProof)
	}
	if len(proof) > MaxProofNodes {
		return nil, fmt.Errorf("%w: %d nodes exceeds maximum of %d", ErrMalformedProof, len(proof), MaxProofNodes)
	}

	db := memorydb.New()
	for i, node := range proof {
		if len(node) == 0 {
			return nil, fmt.Errorf("%w: empty node at index %d", ErrMalformedProof, i)
		}
		if err := db.Put(crypto.Keccak256(node), node); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// verify resolves key in the secure trie rooted at root. A nil value with a
// nil error proves absence.
func verify(root common.Hash, key []byte, proof [][]byte) ([]byte, error) {
	db, err := proofDB(proof)
	if err != nil {
		return nil, err
	}

	value, err := trie.VerifyProof(root, crypto.Keccak256(key), db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofMismatch, err)
	}

	return value, nil
}

// VerifyAccount proves the account of address under an execution state root.
// A nil account with a nil error proves the account does not exist.
func VerifyAccount(stateRoot common.Hash, address common.Address, proof [][]byte) (*types.StateAccount, error) {
	value, err := verify(stateRoot, address.Bytes(), proof)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, nil
	}

	var account types.StateAccount
	if err := rlp.DecodeBytes(value, &account); err != nil {
		return nil, fmt.Errorf("%w: account encoding: %v", ErrMalformedProof, err)
	}

	return &account, nil
}

// VerifyStorage proves the word held in slot under a contract storage root.
// Unset slots prove as the zero word.
func VerifyStorage(storageRoot common.Hash, slot common.Hash, proof [][]byte) (common.Hash, error) {
	value, err := verify(storageRoot, slot.Bytes(), proof)
	if err != nil {
		return common.Hash{}, err
	}
	if len(value) == 0 {
		return common.Hash{}, nil
	}

	var content []byte
	if err := rlp.DecodeBytes(value, &content); err != nil {
		return common.Hash{}, fmt.Errorf("%w: storage encoding: %v", ErrMalformedProof, err)
	}
	if len(content) > common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: storage word of %d bytes", ErrMalformedProof, len(content))
	}

	return common.BytesToHash(content), nil
}

// EncodeStorageWord returns the trie value under which a storage word is kept.
func EncodeStorageWord(word common.Hash) ([]byte, error) {
	return rlp.EncodeToBytes(common.TrimLeftZeroes(word.Bytes()))
}

// CommitmentSlot returns the storage slot of key in a solidity mapping
// declared at mappingSlot.
func CommitmentSlot(key []byte, mappingSlot common.Hash) common.Hash {
	return crypto.Keccak256Hash(crypto.Keccak256(key), mappingSlot.Bytes())
}
