package ethereum

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	ssz "github.com/prysmaticlabs/fastssz"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
)

const (
	blsPubkeyLength    = 48
	blsSignatureLength = 96
	logsBloomLength    = 256
	maxExtraDataBytes  = 32
)

// BeaconBlockHeader is the consensus layer block header.
type BeaconBlockHeader struct {
	Slot          uint64      `json:"slot"`
	ProposerIndex uint64      `json:"proposer_index"`
	ParentRoot    common.Hash `json:"parent_root"`
	StateRoot     common.Hash `json:"state_root"`
	BodyRoot      common.Hash `json:"body_root"`
}

// HashTreeRoot returns the SSZ root of the header.
func (h BeaconBlockHeader) HashTreeRoot() ([32]byte, error) {
	hh := ssz.NewHasher()
	indx := hh.Index()

	hh.PutUint64(h.Slot)
	hh.PutUint64(h.ProposerIndex)
	hh.PutBytes(h.ParentRoot.Bytes())
	hh.PutBytes(h.StateRoot.Bytes())
	hh.PutBytes(h.BodyRoot.Bytes())

	hh.Merkleize(indx)
	return hh.HashRoot()
}

// ExecutionPayloadHeader is the execution layer header embedded in beacon
// blocks since Capella. Blob gas fields are only part of the root from Deneb.
type ExecutionPayloadHeader struct {
	ParentHash       common.Hash    `json:"parent_hash"`
	FeeRecipient     common.Address `json:"fee_recipient"`
	StateRoot        common.Hash    `json:"state_root"`
	ReceiptsRoot     common.Hash    `json:"receipts_root"`
	LogsBloom        hexutil.Bytes  `json:"logs_bloom"`
	PrevRandao       common.Hash    `json:"prev_randao"`
	BlockNumber      uint64         `json:"block_number"`
	GasLimit         uint64         `json:"gas_limit"`
	GasUsed          uint64         `json:"gas_used"`
	Timestamp        uint64         `json:"timestamp"`
	ExtraData        hexutil.Bytes  `json:"extra_data"`
	BaseFeePerGas    *uint256.Int   `json:"base_fee_per_gas"`
	BlockHash        common.Hash    `json:"block_hash"`
	TransactionsRoot common.Hash    `json:"transactions_root"`
	WithdrawalsRoot  common.Hash    `json:"withdrawals_root"`
	BlobGasUsed      uint64         `json:"blob_gas_used"`
	ExcessBlobGas    uint64         `json:"excess_blob_gas"`
}

// HashTreeRoot returns the SSZ root of the header under the layout of fork.
func (h ExecutionPayloadHeader) HashTreeRoot(fork beacon.Fork) ([32]byte, error) {
	if len(h.LogsBloom) != logsBloomLength {
		return [32]byte{}, errorsmod.Wrapf(ErrInvalidHeader, "logs bloom must be %d bytes, got %d", logsBloomLength, len(h.LogsBloom))
	}
	if len(h.ExtraData) > maxExtraDataBytes {
		return [32]byte{}, errorsmod.Wrapf(ErrInvalidHeader, "extra data exceeds %d bytes", maxExtraDataBytes)
	}

	hh := ssz.NewHasher()
	indx := hh.Index()

	hh.PutBytes(h.ParentHash.Bytes())
	hh.PutBytes(h.FeeRecipient.Bytes())
	hh.PutBytes(h.StateRoot.Bytes())
	hh.PutBytes(h.ReceiptsRoot.Bytes())
	hh.PutBytes(h.LogsBloom)
	hh.PutBytes(h.PrevRandao.Bytes())
	hh.PutUint64(h.BlockNumber)
	hh.PutUint64(h.GasLimit)
	hh.PutUint64(h.GasUsed)
	hh.PutUint64(h.Timestamp)

	{
		elemIndx := hh.Index()
		hh.Append(h.ExtraData)
		hh.FillUpTo32()
		hh.MerkleizeWithMixin(elemIndx, uint64(len(h.ExtraData)), (maxExtraDataBytes+31)/32)
	}

	// uint256 is hashed little endian
	var baseFee [32]byte
	if h.BaseFeePerGas != nil {
		baseFee = h.BaseFeePerGas.Bytes32()
		for i, j := 0, len(baseFee)-1; i < j; i, j = i+1, j-1 {
			baseFee[i], baseFee[j] = baseFee[j], baseFee[i]
		}
	}
	hh.PutBytes(baseFee[:])

	hh.PutBytes(h.BlockHash.Bytes())
	hh.PutBytes(h.TransactionsRoot.Bytes())
	hh.PutBytes(h.WithdrawalsRoot.Bytes())

	if fork >= beacon.Deneb {
		hh.PutUint64(h.BlobGasUsed)
		hh.PutUint64(h.ExcessBlobGas)
	}

	hh.Merkleize(indx)
	return hh.HashRoot()
}

// SyncCommittee is the set of validators signing light client updates for a
// sync committee period.
type SyncCommittee struct {
	Pubkeys         []hexutil.Bytes `json:"pubkeys"`
	AggregatePubkey hexutil.Bytes   `json:"aggregate_pubkey"`
}

// HashTreeRoot returns the SSZ root of the committee.
func (sc SyncCommittee) HashTreeRoot() ([32]byte, error) {
	if len(sc.Pubkeys) == 0 {
		return [32]byte{}, errorsmod.Wrap(ErrInvalidSyncCommittee, "empty sync committee")
	}

	hh := ssz.NewHasher()
	indx := hh.Index()

	{
		subIndx := hh.Index()
		for i, pubkey := range sc.Pubkeys {
			if len(pubkey) != blsPubkeyLength {
				return [32]byte{}, errorsmod.Wrapf(ErrInvalidSyncCommittee, "pubkey %d has length %d", i, len(pubkey))
			}
			hh.PutBytes(pubkey)
		}
		hh.Merkleize(subIndx)
	}

	if len(sc.AggregatePubkey) != blsPubkeyLength {
		return [32]byte{}, errorsmod.Wrapf(ErrInvalidSyncCommittee, "aggregate pubkey has length %d", len(sc.AggregatePubkey))
	}
	hh.PutBytes(sc.AggregatePubkey)

	hh.Merkleize(indx)
	return hh.HashRoot()
}

// SyncAggregate carries the participation bits and aggregate signature of a
// sync committee over an attested header.
type SyncAggregate struct {
	SyncCommitteeBits      hexutil.Bytes `json:"sync_committee_bits"`
	SyncCommitteeSignature hexutil.Bytes `json:"sync_committee_signature"`
}

// LightClientHeader is a beacon header together with the execution payload
// header it commits to.
type LightClientHeader struct {
	Beacon          BeaconBlockHeader      `json:"beacon"`
	Execution       ExecutionPayloadHeader `json:"execution"`
	ExecutionBranch []common.Hash          `json:"execution_branch"`
}

// LightClientUpdate is a sync protocol update finalizing a beacon header.
type LightClientUpdate struct {
	AttestedHeader          LightClientHeader `json:"attested_header"`
	NextSyncCommittee       *SyncCommittee    `json:"next_sync_committee,omitempty"`
	NextSyncCommitteeBranch []common.Hash     `json:"next_sync_committee_branch,omitempty"`
	FinalizedHeader         LightClientHeader `json:"finalized_header"`
	FinalityBranch          []common.Hash     `json:"finality_branch"`
	SyncAggregate           SyncAggregate     `json:"sync_aggregate"`
	SignatureSlot           uint64            `json:"signature_slot"`
}

func toBranch(hashes []common.Hash) [][32]byte {
	branch := make([][32]byte, len(hashes))
	for i, h := range hashes {
		branch[i] = h
	}
	return branch
}
