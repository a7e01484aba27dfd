package beacon

// DomainType identifies the signature domain of a beacon chain message.
type DomainType [4]byte

// DomainSyncCommittee is the domain of sync committee signatures.
var DomainSyncCommittee = DomainType{0x07, 0x00, 0x00, 0x00}

// ComputeForkDataRoot returns hash_tree_root(ForkData{version, genesisValidatorsRoot}).
func ComputeForkDataRoot(version [4]byte, genesisValidatorsRoot [32]byte) [32]byte {
	var versionChunk [32]byte
	copy(versionChunk[:], version[:])
	return HashPair(versionChunk, genesisValidatorsRoot)
}

// ComputeDomain returns the 32 byte signature domain for a fork version.
func ComputeDomain(domainType DomainType, version [4]byte, genesisValidatorsRoot [32]byte) [32]byte {
	forkDataRoot := ComputeForkDataRoot(version, genesisValidatorsRoot)

	var domain [32]byte
	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain
}

// ComputeSigningRoot returns hash_tree_root(SigningData{objectRoot, domain}).
func ComputeSigningRoot(objectRoot, domain [32]byte) [32]byte {
	return HashPair(objectRoot, domain)
}
