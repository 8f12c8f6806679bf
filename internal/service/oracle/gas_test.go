package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"RouteForge/pkg/logger"
)

func gasServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gas" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestGasCurvesFromOracle(t *testing.T) {
	srv := gasServer(t, `{"fast":50,"standard":40,"safe":30}`, http.StatusOK)
	defer srv.Close()

	c := NewGasClient(srv.URL, time.Second, logger.Nop())
	curves, err := c.Curves(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("curves: %v", err)
	}
	if curves.Source != "oracle" || curves.StandardGwei != 40 {
		t.Fatalf("got %+v", curves)
	}
}

func TestGasFallsBackToRollingAverage(t *testing.T) {
	srv := gasServer(t, `{"fast":50,"standard":40,"safe":30}`, http.StatusOK)

	c := NewGasClient(srv.URL, time.Second, logger.Nop())
	for i := 0; i < 3; i++ {
		if _, err := c.Curves(context.Background(), "ethereum"); err != nil {
			t.Fatalf("seed fetch: %v", err)
		}
	}
	srv.Close() // oracle goes away

	curves, err := c.Curves(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("curves: %v", err)
	}
	if curves.Source != "rolling-average" || curves.StandardGwei != 40 {
		t.Fatalf("got %+v", curves)
	}
}

func TestGasFallsBackToDefaultsWhenCold(t *testing.T) {
	c := NewGasClient("http://127.0.0.1:1", 100*time.Millisecond, logger.Nop())

	curves, err := c.Curves(context.Background(), "polygon")
	if err != nil {
		t.Fatalf("curves: %v", err)
	}
	if curves.Source != "default" || curves.StandardGwei != defaultGasGwei["polygon"] {
		t.Fatalf("got %+v", curves)
	}

	unknown, err := c.Curves(context.Background(), "no-such-chain")
	if err != nil {
		t.Fatalf("curves: %v", err)
	}
	if unknown.StandardGwei != 20 {
		t.Fatalf("unknown chain default: %+v", unknown)
	}
}

func TestGasPredictsReversionToAverage(t *testing.T) {
	// the oracle reports a spike while history says gas is usually cheap
	srv := gasServer(t, `{"fast":150,"standard":120,"safe":100}`, http.StatusOK)
	defer srv.Close()
	c := NewGasClient(srv.URL, time.Second, logger.Nop())
	c.Observe("ethereum", 30)
	c.Observe("ethereum", 40)

	curves, err := c.Curves(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("curves: %v", err)
	}
	if curves.PredictedLowGwei >= curves.StandardGwei || curves.PredictedWait == 0 {
		t.Fatalf("expected a predicted dip below 120: %+v", curves)
	}

	// the rolling-average fallback is the average itself, nothing lower
	// to wait for
	cold := NewGasClient("http://127.0.0.1:1", 100*time.Millisecond, logger.Nop())
	cold.Observe("ethereum", 50)
	curves, err = cold.Curves(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("curves: %v", err)
	}
	if curves.PredictedWait != 0 {
		t.Fatalf("no dip to predict: %+v", curves)
	}
}

func TestObserveIgnoresNonPositiveSamples(t *testing.T) {
	c := NewGasClient("http://127.0.0.1:1", 100*time.Millisecond, logger.Nop())
	c.Observe("ethereum", 0)
	c.Observe("ethereum", -5)
	if _, ok := c.rollingAverage("ethereum"); ok {
		t.Fatalf("invalid samples must not enter the history")
	}
}
