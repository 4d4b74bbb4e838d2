package selector

import (
	"sort"
	"strings"
)

// Table maps a currency code to candidate instruments in priority order.
type Table map[string][]string

// LegacyTable lists the three most liquid pairs per major currency.
var LegacyTable = Table{
	"USD": {"EURUSD", "GBPUSD", "USDJPY"},
	"EUR": {"EURUSD", "EURGBP", "EURJPY"},
	"GBP": {"GBPUSD", "EURGBP", "GBPJPY"},
	"JPY": {"USDJPY", "EURJPY", "GBPJPY"},
	"CHF": {"USDCHF", "EURCHF", "GBPCHF"},
	"AUD": {"AUDUSD", "EURAUD", "AUDJPY"},
	"CAD": {"USDCAD", "EURCAD", "CADJPY"},
	"NZD": {"NZDUSD", "EURNZD", "NZDJPY"},
}

// ExtendedTable adds cross pairs for every major and covers a few
// non-major currencies.
var ExtendedTable = Table{
	"USD": {"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "USDCHF"},
	"EUR": {"EURUSD", "EURGBP", "EURJPY", "EURCHF", "EURAUD"},
	"GBP": {"GBPUSD", "EURGBP", "GBPJPY", "GBPCHF", "GBPAUD"},
	"JPY": {"USDJPY", "EURJPY", "GBPJPY", "AUDJPY", "CHFJPY"},
	"CHF": {"USDCHF", "EURCHF", "GBPCHF", "CHFJPY", "CADCHF"},
	"AUD": {"AUDUSD", "EURAUD", "AUDJPY", "AUDNZD", "AUDCAD"},
	"CAD": {"USDCAD", "EURCAD", "CADJPY", "AUDCAD", "NZDCAD"},
	"NZD": {"NZDUSD", "EURNZD", "NZDJPY", "AUDNZD", "NZDCAD"},
	"CNY": {"USDCNH"},
	"SEK": {"USDSEK", "EURSEK"},
	"NOK": {"USDNOK"},
}

// TableByName returns "legacy" or "extended"; empty selects extended.
func TableByName(name string) (Table, bool) {
	switch strings.ToLower(name) {
	case "", "extended":
		return ExtendedTable, true
	case "legacy":
		return LegacyTable, true
	}
	return nil, false
}

// Candidates returns the list for currency, case-insensitively.
func (t Table) Candidates(currency string) ([]string, bool) {
	c, ok := t[strings.ToUpper(strings.TrimSpace(currency))]
	return c, ok
}

// Instruments lists every instrument in the table once, sorted.
func (t Table) Instruments() []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range t {
		for _, in := range list {
			if !seen[in] {
				seen[in] = true
				out = append(out, in)
			}
		}
	}
	sort.Strings(out)
	return out
}
