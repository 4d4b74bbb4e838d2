package market

import "strings"

// InstrumentInfo is the broker metadata the strategy needs about a symbol.
type InstrumentInfo struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	// Decimals is the quoted price precision (5 for EURUSD, 3 for USDJPY).
	Decimals int
	// MinStopDistance is the broker's minimum SL/TP distance from price, in points.
	MinStopDistance int
}

// PipSize returns the pip unit for a quote precision: 0.01 for 2-3 decimal
// instruments, 0.0001 for everything else.
func PipSize(decimals int) float64 {
	if decimals == 2 || decimals == 3 {
		return 0.01
	}
	return 0.0001
}

func (i InstrumentInfo) PipSize() float64 {
	return PipSize(i.Decimals)
}

// Point is the smallest quoted increment (10^-Decimals).
func (i InstrumentInfo) Point() float64 {
	p := 1.0
	for n := 0; n < i.Decimals; n++ {
		p /= 10
	}
	return p
}

// MinStopPrice converts MinStopDistance to a price distance.
func (i InstrumentInfo) MinStopPrice() float64 {
	return float64(i.MinStopDistance) * i.Point()
}

// Instruments is the default catalog used by the simulated broker.
var Instruments = map[string]InstrumentInfo{}

func init() {
	for _, name := range []string{
		"EURUSD", "GBPUSD", "AUDUSD", "NZDUSD", "USDCHF", "USDCAD",
		"EURGBP", "EURCHF", "EURAUD", "EURCAD", "EURNZD",
		"GBPCHF", "GBPAUD", "GBPCAD", "AUDCAD", "AUDNZD", "AUDCHF",
		"NZDCAD", "CADCHF", "USDCNH", "USDSEK", "EURSEK", "USDNOK",
	} {
		Instruments[name] = newInfo(name, 5)
	}
	for _, name := range []string{
		"USDJPY", "EURJPY", "GBPJPY", "AUDJPY", "CADJPY", "NZDJPY", "CHFJPY",
	} {
		Instruments[name] = newInfo(name, 3)
	}
}

func newInfo(name string, decimals int) InstrumentInfo {
	base, quote := SplitPair(name)
	return InstrumentInfo{
		Name:          name,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Decimals:      decimals,
	}
}

// SplitPair splits "EURUSD" or "EUR_USD" into its two currency codes.
func SplitPair(name string) (base, quote string) {
	n := strings.ToUpper(strings.ReplaceAll(name, "_", ""))
	if len(n) != 6 {
		return n, ""
	}
	return n[:3], n[3:]
}
