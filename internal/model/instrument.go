package model

// TimestampLayout is the fixed-width layout used for instrument
// updated_at values. Fixed width makes lexicographic order equal to
// chronological order, which the freshness check relies on.
const TimestampLayout = "2006-01-02 15:04:05"

// Instrument is one row of the mirrored broker instrument dump.
type Instrument struct {
	InstrumentToken uint32  `db:"instrument_token" json:"instrument_token"`
	ExchangeToken   uint32  `db:"exchange_token" json:"exchange_token"`
	Tradingsymbol   string  `db:"tradingsymbol" json:"tradingsymbol"`
	Name            string  `db:"name" json:"name"`
	LastPrice       float64 `db:"last_price" json:"last_price"`
	Expiry          string  `db:"expiry" json:"expiry"`
	Strike          float64 `db:"strike" json:"strike"`
	TickSize        float64 `db:"tick_size" json:"tick_size"`
	LotSize         uint32  `db:"lot_size" json:"lot_size"`
	InstrumentType  string  `db:"instrument_type" json:"instrument_type"`
	Segment         string  `db:"segment" json:"segment"`
	Exchange        string  `db:"exchange" json:"exchange"`
	UpdatedAt       string  `db:"updated_at" json:"-"`
}

// InstrumentFilter narrows instrument queries. Empty fields are ignored.
type InstrumentFilter struct {
	Exchange       string
	Tradingsymbol  string
	Name           string
	Expiry         string
	Strike         string
	Segment        string
	InstrumentType string
	Limit          int
	Offset         int
}
