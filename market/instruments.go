package market

// InstrumentMeta describes a tradeable currency pair.
type InstrumentMeta struct {
	Name                string
	BaseCurrency        string
	QuoteCurrency       string
	PipLocation         int
	TradeUnitsPrecision int
	MinimumTradeSize    float64
}

// Instruments is the fixed set of supported pairs. Lookups outside this set
// are configuration errors, not runtime conditions.
var Instruments = map[string]InstrumentMeta{
	"EUR_USD": {Name: "EUR_USD", BaseCurrency: "EUR", QuoteCurrency: "USD", PipLocation: -4, MinimumTradeSize: 1},
	"GBP_USD": {Name: "GBP_USD", BaseCurrency: "GBP", QuoteCurrency: "USD", PipLocation: -4, MinimumTradeSize: 1},
	"USD_JPY": {Name: "USD_JPY", BaseCurrency: "USD", QuoteCurrency: "JPY", PipLocation: -2, MinimumTradeSize: 1},
	"USD_CHF": {Name: "USD_CHF", BaseCurrency: "USD", QuoteCurrency: "CHF", PipLocation: -4, MinimumTradeSize: 1},
	"AUD_USD": {Name: "AUD_USD", BaseCurrency: "AUD", QuoteCurrency: "USD", PipLocation: -4, MinimumTradeSize: 1},
	"USD_CAD": {Name: "USD_CAD", BaseCurrency: "USD", QuoteCurrency: "CAD", PipLocation: -4, MinimumTradeSize: 1},
	"NZD_USD": {Name: "NZD_USD", BaseCurrency: "NZD", QuoteCurrency: "USD", PipLocation: -4, MinimumTradeSize: 1},
}

// Supported reports whether name is a known instrument.
func Supported(name string) bool {
	_, ok := Instruments[name]
	return ok
}
