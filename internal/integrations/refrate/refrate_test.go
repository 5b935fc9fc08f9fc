package refrate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `<?xml version="1.0" encoding="utf-8"?>
<Rates>
	<Entry><Date>2025-06-06</Date><Rate>5,50</Rate></Entry>
	<Entry><Date>2025-04-09</Date><Rate>6.00</Rate></Entry>
</Rates>`

func TestRateAddsMargin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	log, _ := logtest.NewNullLogger()
	rate, err := NewClient(srv.URL, 4.5, log).Rate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, rate, 1e-9)
}

func TestRateCustomPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<feed><repo><value>6.25</value></repo></feed>`))
	}))
	defer srv.Close()

	log, _ := logtest.NewNullLogger()
	rate, err := NewClient(srv.URL, 0, log).WithPath("//repo/value").Rate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 6.25, rate, 1e-9)
}

func TestRateErrors(t *testing.T) {
	log, _ := logtest.NewNullLogger()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	_, err := NewClient(down.URL, 0, log).Rate(context.Background())
	assert.ErrorContains(t, err, "unexpected status code")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<Rates/>`))
	}))
	defer empty.Close()
	_, err = NewClient(empty.URL, 0, log).Rate(context.Background())
	assert.ErrorContains(t, err, "no rate found")
}
