package telemetry

import (
	"strconv"

	"github.com/hashicorp/go-metrics"

	"github.com/cosmos/cosmos-sdk/telemetry"

	coremetrics "github.com/cosmos/ibc-go/v10/modules/core/metrics"
)

// ReportUpdate records an accepted header and the slot the client now tracks.
func ReportUpdate(clientType, updateType string, latestSlot uint64) {
	telemetry.IncrCounterWithLabels(
		[]string{"ibc", "client", "update"},
		1,
		[]metrics.Label{
			telemetry.NewLabel(coremetrics.LabelClientType, clientType),
			telemetry.NewLabel(coremetrics.LabelUpdateType, updateType),
		},
	)

	telemetry.SetGaugeWithLabels(
		[]string{"ibc", "client", "latest_slot"},
		float32(latestSlot),
		[]metrics.Label{telemetry.NewLabel(coremetrics.LabelClientType, clientType)},
	)
}

// ReportMisbehaviour records a client being frozen.
func ReportMisbehaviour(clientType, kind string) {
	telemetry.IncrCounterWithLabels(
		[]string{"ibc", "client", "misbehaviour"},
		1,
		[]metrics.Label{
			telemetry.NewLabel(coremetrics.LabelClientType, clientType),
			telemetry.NewLabel("kind", kind),
		},
	)
}

// ReportVerification records the outcome of a membership or non-membership proof.
func ReportVerification(clientType, msgType string, success bool) {
	telemetry.IncrCounterWithLabels(
		[]string{"ibc", "client", "verify"},
		1,
		[]metrics.Label{
			telemetry.NewLabel(coremetrics.LabelClientType, clientType),
			telemetry.NewLabel(coremetrics.LabelMsgType, msgType),
			telemetry.NewLabel("success", strconv.FormatBool(success)),
		},
	)
}
