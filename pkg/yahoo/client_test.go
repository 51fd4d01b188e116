package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chartBody = `{
  "chart": {
    "result": [
      {
        "meta": {
          "symbol": "AAPL",
          "regularMarketPrice": 150.0,
          "chartPreviousClose": 147.0
        },
        "timestamp": [1717340400, 1717340700, 1717341000],
        "indicators": {
          "quote": [
            {"close": [148.5, null, 149.25]}
          ]
        }
      }
    ],
    "error": null
  }
}`

func newTestServer(t *testing.T, wantPath string, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestFetchQuote(t *testing.T) {
	srv := newTestServer(t, "/v8/finance/chart/AAPL", http.StatusOK, chartBody)
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, "")
	q, err := client.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Price != 150.0 {
		t.Errorf("price: want 150.0, got %v", q.Price)
	}
	// (150 - 147) / 147 * 100
	want := (150.0 - 147.0) / 147.0 * 100
	if diff := q.ChangePercent - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("change percent: want %v, got %v", want, q.ChangePercent)
	}
}

func TestFetchHistory_SkipsNullCloses(t *testing.T) {
	srv := newTestServer(t, "/v8/finance/chart/BTC-USD", http.StatusOK, chartBody)
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, "")
	series, err := client.FetchHistory(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Three timestamps, one null close -> two points.
	if len(series) != 2 {
		t.Fatalf("want 2 points, got %d: %+v", len(series), series)
	}
	if series[0].Price != 148.5 || series[1].Price != 149.25 {
		t.Errorf("unexpected prices: %+v", series)
	}
	if got := series[0].Timestamp; !got.Equal(time.Unix(1717340400, 0)) {
		t.Errorf("unexpected first timestamp: %v", got)
	}
	if !series[0].Timestamp.Before(series[1].Timestamp) {
		t.Error("series not ordered oldest to newest")
	}
}

func TestFetchQuote_HTTPError(t *testing.T) {
	srv := newTestServer(t, "/v8/finance/chart/AAPL", http.StatusTooManyRequests, "rate limited")
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, "")
	if _, err := client.FetchQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestFetchQuote_ChartError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	srv := newTestServer(t, "/v8/finance/chart/NOPE", http.StatusOK, body)
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, "")
	if _, err := client.FetchQuote(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error from chart error object")
	}
}

func TestFetchQuote_EmptyResult(t *testing.T) {
	body := `{"chart":{"result":[],"error":null}}`
	srv := newTestServer(t, "/v8/finance/chart/AAPL", http.StatusOK, body)
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, "")
	if _, err := client.FetchQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error on empty result")
	}
}

func TestFetchQuote_APIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-KEY"); got != "secret" {
			t.Errorf("X-API-KEY: want secret, got %q", got)
		}
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, "secret")
	if _, err := client.FetchQuote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
