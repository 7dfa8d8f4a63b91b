package kite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instrumentCSV = `instrument_token,exchange_token,tradingsymbol,name,last_price,expiry,strike,tick_size,lot_size,instrument_type,segment,exchange
408065,1594,INFY,"INFOSYS LTD",1520.5,,0,0.05,1,EQ,NSE,NSE
12345602,48225,"NIFTY24JANFUT","NIFTY, JANUARY FUTURE",21500,2024-01-25,0,0.05,50,FUT,NFO-FUT,NFO
`

func TestParseInstrumentCSV(t *testing.T) {
	t.Run("parses typed rows with quoted commas", func(t *testing.T) {
		rows, err := parseInstrumentCSV(strings.NewReader(instrumentCSV))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, uint32(408065), rows[0].InstrumentToken)
		assert.Equal(t, "INFY", rows[0].Tradingsymbol)
		assert.Equal(t, "INFOSYS LTD", rows[0].Name)
		assert.Equal(t, 1520.5, rows[0].LastPrice)
		assert.Equal(t, uint32(1), rows[0].LotSize)
		assert.Equal(t, "NSE", rows[0].Exchange)

		assert.Equal(t, "NIFTY, JANUARY FUTURE", rows[1].Name)
		assert.Equal(t, "2024-01-25", rows[1].Expiry)
		assert.Equal(t, uint32(50), rows[1].LotSize)
		assert.Equal(t, "NFO", rows[1].Exchange)

		// updated_at is stamped by the refresher, not the parser
		assert.Empty(t, rows[0].UpdatedAt)
	})

	t.Run("rejects a dump without required columns", func(t *testing.T) {
		_, err := parseInstrumentCSV(strings.NewReader("a,b,c\n1,2,3\n"))
		assert.Error(t, err)
	})

	t.Run("rejects rows with malformed tokens", func(t *testing.T) {
		csv := "instrument_token,tradingsymbol,exchange\nnot-a-number,INFY,NSE\n"
		_, err := parseInstrumentCSV(strings.NewReader(csv))
		assert.Error(t, err)
	})

	t.Run("empty dump yields no rows", func(t *testing.T) {
		rows, err := parseInstrumentCSV(strings.NewReader("instrument_token,tradingsymbol,exchange\n"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestFetchInstruments(t *testing.T) {
	t.Run("downloads and parses the dump", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/instruments", r.URL.Path)
			w.Write([]byte(instrumentCSV))
		}))
		defer srv.Close()

		rows, err := newTestClient(srv).FetchInstruments(context.Background())
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv).FetchInstruments(context.Background())
		assert.Error(t, err)
	})
}
