package ratefeed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cardcore/billing-service/internal/config"
)

const sampleResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
  <soap12:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgram>
          <KeyRate>
            <KR><DT>2024-03-01T00:00:00+03:00</DT><Rate>16.00</Rate></KR>
            <KR><DT>2024-02-01T00:00:00+03:00</DT><Rate>15.00</Rate></KR>
          </KeyRate>
        </diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap12:Body>
</soap12:Envelope>`

func newTestClient(url string) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(&config.Config{RateFeedURL: url}, log)
}

func TestBaseRateParsesLatestRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	rate, err := newTestClient(srv.URL).BaseRate(context.Background())
	if err != nil {
		t.Fatalf("BaseRate: %v", err)
	}
	if want := decimal.NewFromInt(16); !rate.Equal(want) {
		t.Errorf("rate = %s, want %s (latest entry)", rate, want)
	}
}

func TestBaseRateRejectsEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0"?><Envelope><Body></Body></Envelope>`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).BaseRate(context.Background()); err == nil {
		t.Fatal("expected error for feed without rate data")
	}
}

func TestBaseRateRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).BaseRate(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
