package eventlog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/restaurant/services/ordering/internal/money"
)

func TestDocumentIDIsDeterministic(t *testing.T) {
	event := OrderEvent{OrderID: 42, Seq: 3, Type: EventPaymentSucceeded}
	require.Equal(t, "order-42-3-payment_succeeded", event.DocumentID())
}

func TestTotalReadsPayloadAcrossNumericTypes(t *testing.T) {
	// JSON decoding yields float64, direct appends int64
	for _, raw := range []interface{}{float64(1350), int64(1350), int(1350), money.Pence(1350)} {
		event := OrderEvent{Payload: map[string]interface{}{PayloadTotalKey: raw}}
		total, ok := event.Total()
		require.True(t, ok)
		require.Equal(t, money.Pence(1350), total)
	}
}

func TestTotalMissingOrWrongType(t *testing.T) {
	_, ok := OrderEvent{}.Total()
	require.False(t, ok)

	_, ok = OrderEvent{Payload: map[string]interface{}{PayloadTotalKey: "1350"}}.Total()
	require.False(t, ok)
}
