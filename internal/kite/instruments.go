package kite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/marketloft/sessiongate/internal/model"
)

// FetchInstruments downloads and parses the full instrument dump, a
// comma-separated, double-quote-escaped text file with a header row.
// Rows come back without updated_at; the refresher stamps them.
func (c *Client) FetchInstruments(ctx context.Context) ([]model.Instrument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/instruments", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch instrument dump: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("instrument dump returned %d", resp.StatusCode)
	}

	return parseInstrumentCSV(resp.Body)
}

func parseInstrumentCSV(r io.Reader) ([]model.Instrument, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read instrument header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"instrument_token", "tradingsymbol", "exchange"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("instrument header missing %q column", required)
		}
	}

	field := func(record []string, name string) string {
		if i, ok := col[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	var instruments []model.Instrument
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read instrument row: %w", err)
		}

		token, err := strconv.ParseUint(field(record, "instrument_token"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad instrument_token %q: %w", field(record, "instrument_token"), err)
		}
		exchangeToken, _ := strconv.ParseUint(field(record, "exchange_token"), 10, 32)
		lastPrice, _ := strconv.ParseFloat(field(record, "last_price"), 64)
		strike, _ := strconv.ParseFloat(field(record, "strike"), 64)
		tickSize, _ := strconv.ParseFloat(field(record, "tick_size"), 64)
		lotSize, _ := strconv.ParseUint(field(record, "lot_size"), 10, 32)

		instruments = append(instruments, model.Instrument{
			InstrumentToken: uint32(token),
			ExchangeToken:   uint32(exchangeToken),
			Tradingsymbol:   field(record, "tradingsymbol"),
			Name:            field(record, "name"),
			LastPrice:       lastPrice,
			Expiry:          field(record, "expiry"),
			Strike:          strike,
			TickSize:        tickSize,
			LotSize:         uint32(lotSize),
			InstrumentType:  field(record, "instrument_type"),
			Segment:         field(record, "segment"),
			Exchange:        field(record, "exchange"),
		})
	}

	return instruments, nil
}
