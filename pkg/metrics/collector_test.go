package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()
	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestCollector_SessionLifecycle(t *testing.T) {
	c := NewCollector()

	c.SessionStarted()
	if v := counterValue(t, c.sessionsTotal); v != 1 {
		t.Errorf("expected sessionsTotal 1, got %v", v)
	}
	if v := counterValue(t, c.sessionActive); v != 1 {
		t.Errorf("expected sessionActive 1, got %v", v)
	}

	c.DatabasesPending(3)
	if v := counterValue(t, c.databasesPending); v != 3 {
		t.Errorf("expected databasesPending 3, got %v", v)
	}

	c.SessionEnded()
	if v := counterValue(t, c.sessionActive); v != 0 {
		t.Errorf("expected sessionActive 0 after end, got %v", v)
	}
	if v := counterValue(t, c.databasesPending); v != 0 {
		t.Errorf("expected databasesPending 0 after end, got %v", v)
	}
}

func TestCollector_RecordsAndBytes(t *testing.T) {
	c := NewCollector()

	c.RecordsTransferred(10)
	c.RecordsTransferred(5)
	if v := counterValue(t, c.recordsTransferred); v != 15 {
		t.Errorf("expected recordsTransferred 15, got %v", v)
	}

	c.BytesRead(1024)
	c.BytesWritten(2048)
	if v := counterValue(t, c.bytesTotal.WithLabelValues("read")); v != 1024 {
		t.Errorf("expected bytes read 1024, got %v", v)
	}
	if v := counterValue(t, c.bytesTotal.WithLabelValues("write")); v != 2048 {
		t.Errorf("expected bytes written 2048, got %v", v)
	}
}

func TestCollector_PADPRetriesAndRemoteErrors(t *testing.T) {
	c := NewCollector()

	c.PADPRetried()
	c.PADPRetried()
	if v := counterValue(t, c.padpRetriesTotal); v != 2 {
		t.Errorf("expected padpRetriesTotal 2, got %v", v)
	}

	c.RemoteError("NOT_FOUND")
	c.RemoteError("NOT_FOUND")
	c.RemoteError("BUSY")
	if v := counterValue(t, c.remoteErrorsTotal.WithLabelValues("NOT_FOUND")); v != 2 {
		t.Errorf("expected 2 NOT_FOUND errors, got %v", v)
	}
	if v := counterValue(t, c.remoteErrorsTotal.WithLabelValues("BUSY")); v != 1 {
		t.Errorf("expected 1 BUSY error, got %v", v)
	}
}

func TestCollector_Registry(t *testing.T) {
	c := NewCollector()
	if c.Registry() == nil {
		t.Fatal("expected non-nil registry")
	}
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			c.SessionStarted()
			c.RecordsTransferred(1)
			c.BytesRead(100)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if v := counterValue(t, c.recordsTransferred); v < 10 {
		t.Errorf("expected recordsTransferred >= 10, got %v", v)
	}
}
