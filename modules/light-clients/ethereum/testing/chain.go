package testing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/prysmaticlabs/prysm/v5/crypto/bls"

	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/beacon"
	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/internal/mpt"
)

// Chain simulates an Ethereum beacon chain with an IBC contract on its
// execution layer. It produces light client updates signed by deterministic
// sync committees and storage proofs of the contract commitments.
type Chain struct {
	ForkParameters ethereum.ForkParameters

	committees map[uint64]*committee
	storage    map[common.Hash]common.Hash
	snapshots  map[uint64]*executionState
}

type committee struct {
	keys          []bls.SecretKey
	syncCommittee *ethereum.SyncCommittee
	root          common.Hash
}

// executionState is the execution layer state at a slot.
type executionState struct {
	storage     map[common.Hash]common.Hash
	storageTrie *trie.Trie
	stateTrie   *trie.Trie
	storageRoot common.Hash
	stateRoot   common.Hash
}

// NewChain returns a chain at genesis. The contract storage only holds its
// first slot so the storage trie is never empty.
func NewChain() *Chain {
	return &Chain{
		ForkParameters: DefaultForkParameters(),
		committees:     make(map[uint64]*committee),
		storage:        map[common.Hash]common.Hash{{}: common.HexToHash("0x01")},
		snapshots:      make(map[uint64]*executionState),
	}
}

// Period returns the sync committee period of slot.
func Period(slot uint64) uint64 {
	return slot / SlotsPerPeriod
}

// ClientState returns a client state tracking the chain with latest height (0, latestSlot).
func (c *Chain) ClientState(latestSlot uint64) *ethereum.ClientState {
	return &ethereum.ClientState{
		ChainID:                      DefaultChainID,
		GenesisValidatorsRoot:        GenesisValidatorsRoot,
		GenesisTime:                  DefaultGenesisTime,
		GenesisSlot:                  0,
		ForkParameters:               c.ForkParameters,
		SecondsPerSlot:               SecondsPerSlot,
		SlotsPerEpoch:                SlotsPerEpoch,
		EpochsPerSyncCommitteePeriod: EpochsPerSyncCommitteePeriod,
		SyncCommitteeSize:            SyncCommitteeSize,
		MinSyncCommitteeParticipants: 1,
		LatestHeight:                 clienttypes.NewHeight(0, latestSlot),
		TrustingPeriod:               DefaultTrustingPeriod,
		UnbondingPeriod:              DefaultUnbondingPeriod,
		MaxClockDrift:                DefaultMaxClockDrift,
		IbcCommitmentSlot:            IbcCommitmentSlot,
		IbcContractAddress:           ContractAddress,
		UpgradePath:                  DefaultUpgradePath,
		Checksum:                     Checksum[:],
	}
}

// ConsensusState snapshots the current contract storage at slot and returns
// the consensus state a client trusting slot holds.
func (c *Chain) ConsensusState(slot uint64) *ethereum.ConsensusState {
	state := c.snapshot(slot)
	period := Period(slot)

	return &ethereum.ConsensusState{
		Slot:                 slot,
		StateRoot:            state.stateRoot,
		StorageRoot:          state.storageRoot,
		Timestamp:            SlotTime(slot),
		CurrentSyncCommittee: c.committee(period).root,
		NextSyncCommittee:    c.committee(period + 1).root,
	}
}

// SyncCommittee returns the sync committee of period.
func (c *Chain) SyncCommittee(period uint64) *ethereum.SyncCommittee {
	return c.committee(period).syncCommittee
}

// Commit stores the commitment of value at the IBC path.
func (c *Chain) Commit(path, value []byte) {
	c.storage[mpt.CommitmentSlot(path, IbcCommitmentSlot)] = ethereum.CommitmentWord(value)
}

// Delete removes the commitment at the IBC path.
func (c *Chain) Delete(path []byte) {
	delete(c.storage, mpt.CommitmentSlot(path, IbcCommitmentSlot))
}

// StorageProof returns the JSON storage proof of the IBC path in the state
// snapshotted at slot. Absent paths yield a proof of the zero word.
func (c *Chain) StorageProof(slot uint64, path []byte) []byte {
	state, ok := c.snapshots[slot]
	if !ok {
		panic(fmt.Errorf("no execution state snapshotted at slot %d", slot))
	}

	key := mpt.CommitmentSlot(path, IbcCommitmentSlot)
	proof := ethereum.StorageProof{
		Key:   key,
		Value: state.storage[key],
		Proof: prove(state.storageTrie, key.Bytes()),
	}

	bz, err := proof.Marshal()
	if err != nil {
		panic(err)
	}
	return bz
}

// UpdateOptions alter the update produced by Chain.Update.
type UpdateOptions struct {
	// Participants is the number of committee members signing. Zero means all.
	Participants int
	// Salt adds a storage slot to the finalized execution state, producing a
	// conflicting state for the same slot.
	Salt []byte
	// OmitNextSyncCommittee leaves the next sync committee out of the update.
	OmitNextSyncCommittee bool
}

// Update returns a header finalizing finalizedSlot that a client trusting
// trustedSlot accepts. The attested header is at finalizedSlot+1 and the
// signature at finalizedSlot+2.
func (c *Chain) Update(trustedSlot, finalizedSlot uint64, opts UpdateOptions) *ethereum.Header {
	var state *executionState
	if len(opts.Salt) == 0 {
		state = c.snapshot(finalizedSlot)
	} else {
		state = c.buildExecutionState(opts.Salt)
	}

	return &ethereum.Header{
		TrustedSyncCommittee: c.TrustedSyncCommittee(trustedSlot, finalizedSlot+2),
		ConsensusUpdate:      c.lightClientUpdate(finalizedSlot, state, opts),
		AccountUpdate: ethereum.AccountUpdate{
			AccountProof: ethereum.AccountProof{
				Proof:       prove(state.stateTrie, ContractAddress.Bytes()),
				StorageRoot: state.storageRoot,
			},
		},
	}
}

// Misbehaviour returns two updates trusted at trustedSlot that finalize
// conflicting execution states at finalizedSlot.
func (c *Chain) Misbehaviour(trustedSlot, finalizedSlot uint64) *ethereum.Misbehaviour {
	return &ethereum.Misbehaviour{
		TrustedSyncCommittee: c.TrustedSyncCommittee(trustedSlot, finalizedSlot+2),
		UpdateOne:            c.lightClientUpdate(finalizedSlot, c.buildExecutionState([]byte("fork one")), UpdateOptions{}),
		UpdateTwo:            c.lightClientUpdate(finalizedSlot, c.buildExecutionState([]byte("fork two")), UpdateOptions{}),
	}
}

// TrustedSyncCommittee returns the committee of the consensus state at
// trustedSlot that signs at signatureSlot.
func (c *Chain) TrustedSyncCommittee(trustedSlot, signatureSlot uint64) ethereum.TrustedSyncCommittee {
	trusted := ethereum.TrustedSyncCommittee{
		TrustedHeight: clienttypes.NewHeight(0, trustedSlot),
	}

	if Period(signatureSlot) == Period(trustedSlot) {
		trusted.CurrentSyncCommittee = c.SyncCommittee(Period(trustedSlot))
	} else {
		trusted.NextSyncCommittee = c.SyncCommittee(Period(trustedSlot) + 1)
	}

	return trusted
}

func (c *Chain) lightClientUpdate(finalizedSlot uint64, state *executionState, opts UpdateOptions) ethereum.LightClientUpdate {
	attestedSlot := finalizedSlot + 1
	signatureSlot := finalizedSlot + 2

	finalized := c.lightClientHeader(finalizedSlot, state, c.hash("beacon state", finalizedSlot, state.stateRoot.Bytes()))
	finalizedRoot, err := finalized.Beacon.HashTreeRoot()
	if err != nil {
		panic(err)
	}

	attestedFork := c.ForkParameters.ForkAtEpoch(attestedSlot / SlotsPerEpoch)
	attestedState := sparseTree{beacon.FinalizedRootGindexAt(attestedFork): finalizedRoot}

	update := ethereum.LightClientUpdate{
		SignatureSlot: signatureSlot,
	}

	nextPeriod := Period(attestedSlot) + 1
	if !opts.OmitNextSyncCommittee && Period(attestedSlot) == Period(finalizedSlot) {
		update.NextSyncCommittee = c.SyncCommittee(nextPeriod)
		attestedState[beacon.NextSyncCommitteeGindexAt(attestedFork)] = c.committee(nextPeriod).root
	}

	attested := c.lightClientHeader(attestedSlot, state, attestedState.root())

	update.AttestedHeader = attested
	update.FinalizedHeader = finalized
	update.FinalityBranch = attestedState.branch(beacon.FinalizedRootGindexAt(attestedFork))
	if update.NextSyncCommittee != nil {
		update.NextSyncCommitteeBranch = attestedState.branch(beacon.NextSyncCommitteeGindexAt(attestedFork))
	}
	update.SyncAggregate = c.sign(attested.Beacon, signatureSlot, opts.Participants)

	return update
}

// sign returns the sync aggregate of the first participants members of the
// committee of signatureSlot over the attested header.
func (c *Chain) sign(attested ethereum.BeaconBlockHeader, signatureSlot uint64, participants int) ethereum.SyncAggregate {
	if participants == 0 {
		participants = SyncCommitteeSize
	}

	attestedRoot, err := attested.HashTreeRoot()
	if err != nil {
		panic(err)
	}

	forkVersionSlot := signatureSlot
	if forkVersionSlot > 0 {
		forkVersionSlot--
	}
	forkVersion := c.ForkParameters.ForkVersionAtEpoch(forkVersionSlot / SlotsPerEpoch)
	domain := beacon.ComputeDomain(beacon.DomainSyncCommittee, forkVersion, GenesisValidatorsRoot)
	signingRoot := beacon.ComputeSigningRoot(attestedRoot, domain)

	signers := c.committee(Period(signatureSlot))
	bits := bitfield.NewBitvector32()
	sigs := make([]bls.Signature, 0, participants)
	for i := 0; i < participants; i++ {
		bits.SetBitAt(uint64(i), true)
		sigs = append(sigs, signers.keys[i].Sign(signingRoot[:]))
	}

	return ethereum.SyncAggregate{
		SyncCommitteeBits:      hexutil.Bytes(bits.Bytes()),
		SyncCommitteeSignature: bls.AggregateSignatures(sigs).Marshal(),
	}
}

func (c *Chain) lightClientHeader(slot uint64, state *executionState, stateRoot common.Hash) ethereum.LightClientHeader {
	execution := ethereum.ExecutionPayloadHeader{
		ParentHash:       c.hash("parent hash", slot),
		FeeRecipient:     common.Address{},
		StateRoot:        state.stateRoot,
		ReceiptsRoot:     types.EmptyReceiptsHash,
		LogsBloom:        make(hexutil.Bytes, types.BloomByteLength),
		PrevRandao:       c.hash("prev randao", slot),
		BlockNumber:      slot,
		GasLimit:         30_000_000,
		Timestamp:        SlotTime(slot),
		ExtraData:        hexutil.Bytes{},
		BaseFeePerGas:    uint256.NewInt(7),
		BlockHash:        c.hash("block hash", slot, state.stateRoot.Bytes()),
		TransactionsRoot: types.EmptyTxsHash,
		WithdrawalsRoot:  types.EmptyWithdrawalsHash,
	}

	fork := c.ForkParameters.ForkAtEpoch(slot / SlotsPerEpoch)
	executionRoot, err := execution.HashTreeRoot(fork)
	if err != nil {
		panic(err)
	}

	body := sparseTree{beacon.ExecutionPayloadGindex: executionRoot}

	return ethereum.LightClientHeader{
		Beacon: ethereum.BeaconBlockHeader{
			Slot:          slot,
			ProposerIndex: slot % SyncCommitteeSize,
			ParentRoot:    c.hash("parent root", slot),
			StateRoot:     stateRoot,
			BodyRoot:      body.root(),
		},
		Execution:       execution,
		ExecutionBranch: body.branch(beacon.ExecutionPayloadGindex),
	}
}

func (c *Chain) committee(period uint64) *committee {
	if cm, ok := c.committees[period]; ok {
		return cm
	}

	cm := &committee{
		syncCommittee: &ethereum.SyncCommittee{},
	}

	pubkeys := make([][]byte, 0, SyncCommitteeSize)
	for i := 0; i < SyncCommitteeSize; i++ {
		seed := sha256.Sum256([]byte(fmt.Sprintf("sync committee %d member %d", period, i)))
		// keep the scalar below the curve order
		seed[0] &= 0x3f
		sk, err := bls.SecretKeyFromBytes(seed[:])
		if err != nil {
			panic(err)
		}

		pubkey := sk.PublicKey().Marshal()
		cm.keys = append(cm.keys, sk)
		pubkeys = append(pubkeys, pubkey)
		cm.syncCommittee.Pubkeys = append(cm.syncCommittee.Pubkeys, pubkey)
	}

	aggregate, err := bls.AggregatePublicKeys(pubkeys)
	if err != nil {
		panic(err)
	}
	cm.syncCommittee.AggregatePubkey = aggregate.Marshal()

	root, err := cm.syncCommittee.HashTreeRoot()
	if err != nil {
		panic(err)
	}
	cm.root = root

	c.committees[period] = cm
	return cm
}

// snapshot records the current contract storage as the execution state of slot.
func (c *Chain) snapshot(slot uint64) *executionState {
	state := c.buildExecutionState(nil)
	c.snapshots[slot] = state
	return state
}

func (c *Chain) buildExecutionState(salt []byte) *executionState {
	storage := maps.Clone(c.storage)
	if len(salt) != 0 {
		storage[crypto.Keccak256Hash(salt)] = crypto.Keccak256Hash(salt, []byte("value"))
	}

	storageTrie := newTrie()
	for slot, word := range storage {
		value, err := mpt.EncodeStorageWord(word)
		if err != nil {
			panic(err)
		}
		mustUpdate(storageTrie, slot.Bytes(), value)
	}
	storageRoot := storageTrie.Hash()

	stateTrie := newTrie()
	for i, address := range []common.Address{ContractAddress, common.HexToAddress("0x0000000000000000000000000000000000000001")} {
		account := types.StateAccount{
			Nonce:    uint64(i + 1),
			Balance:  uint256.NewInt(1_000_000),
			Root:     types.EmptyRootHash,
			CodeHash: crypto.Keccak256(nil),
		}
		if address == ContractAddress {
			account.Root = storageRoot
		}

		value, err := rlp.EncodeToBytes(&account)
		if err != nil {
			panic(err)
		}
		mustUpdate(stateTrie, address.Bytes(), value)
	}

	return &executionState{
		storage:     storage,
		storageTrie: storageTrie,
		stateTrie:   stateTrie,
		storageRoot: storageRoot,
		stateRoot:   stateTrie.Hash(),
	}
}

func (c *Chain) hash(label string, slot uint64, extra ...[]byte) common.Hash {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], slot)
	return crypto.Keccak256Hash(append([][]byte{[]byte(label), bz[:]}, extra...)...)
}

// MarshalClientMessage returns the JSON encoding of a header or misbehaviour.
func MarshalClientMessage(msg any) []byte {
	bz, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return bz
}

func newTrie() *trie.Trie {
	return trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
}

func mustUpdate(tr *trie.Trie, key, value []byte) {
	if err := tr.Update(crypto.Keccak256(key), value); err != nil {
		panic(err)
	}
}

type proofList []hexutil.Bytes

func (p *proofList) Put(_ []byte, value []byte) error {
	*p = append(*p, common.CopyBytes(value))
	return nil
}

func (p *proofList) Delete([]byte) error {
	return nil
}

func prove(tr *trie.Trie, key []byte) []hexutil.Bytes {
	var proof proofList
	if err := tr.Prove(crypto.Keccak256(key), &proof); err != nil {
		panic(err)
	}
	return proof
}
