package beacon

import "fmt"

// Fork enumerates the consensus upgrades that change light client data layout.
type Fork int

const (
	Phase0 Fork = iota
	Altair
	Bellatrix
	Capella
	Deneb
	Electra
)

func (f Fork) String() string {
	switch f {
	case Phase0:
		return "phase0"
	case Altair:
		return "altair"
	case Bellatrix:
		return "bellatrix"
	case Capella:
		return "capella"
	case Deneb:
		return "deneb"
	case Electra:
		return "electra"
	default:
		return fmt.Sprintf("fork(%d)", int(f))
	}
}

// Generalized indices into BeaconState and BeaconBlockBody.
const (
	FinalizedRootGindex        uint64 = 105
	CurrentSyncCommitteeGindex uint64 = 54
	NextSyncCommitteeGindex    uint64 = 55

	FinalizedRootGindexElectra        uint64 = 169
	CurrentSyncCommitteeGindexElectra uint64 = 86
	NextSyncCommitteeGindexElectra    uint64 = 87

	ExecutionPayloadGindex uint64 = 25
)

// FinalizedRootGindexAt returns the finalized checkpoint root index for a fork.
func FinalizedRootGindexAt(f Fork) uint64 {
	if f >= Electra {
		return FinalizedRootGindexElectra
	}
	return FinalizedRootGindex
}

// CurrentSyncCommitteeGindexAt returns the current sync committee index for a fork.
func CurrentSyncCommitteeGindexAt(f Fork) uint64 {
	if f >= Electra {
		return CurrentSyncCommitteeGindexElectra
	}
	return CurrentSyncCommitteeGindex
}

// NextSyncCommitteeGindexAt returns the next sync committee index for a fork.
func NextSyncCommitteeGindexAt(f Fork) uint64 {
	if f >= Electra {
		return NextSyncCommitteeGindexElectra
	}
	return NextSyncCommitteeGindex
}
