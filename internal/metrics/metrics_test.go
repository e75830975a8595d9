package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDisconnectIncrementsCounterAndObservesDuration(t *testing.T) {
	before := testutil.ToFloat64(DisconnectsTotal.WithLabelValues(DisconnectPingTimeout, InitiatedByServer))
	RecordDisconnect(DisconnectPingTimeout, InitiatedByServer, 42*time.Second)
	after := testutil.ToFloat64(DisconnectsTotal.WithLabelValues(DisconnectPingTimeout, InitiatedByServer))

	if after != before+1 {
		t.Fatalf("DisconnectsTotal = %v, want %v", after, before+1)
	}
}

func TestRecordErrorIncrementsByTypeAndSeverity(t *testing.T) {
	before := testutil.ToFloat64(ErrorsTotal.WithLabelValues(TypeBus, SeverityCritical))
	RecordError(TypeBus, SeverityCritical)
	after := testutil.ToFloat64(ErrorsTotal.WithLabelValues(TypeBus, SeverityCritical))

	if after != before+1 {
		t.Fatalf("ErrorsTotal = %v, want %v", after, before+1)
	}
}

func TestHandlerIsNotNil(t *testing.T) {
	if Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}
