package symbols

import "strings"

// knownQuotes are the quote currencies used to split canonical symbols when
// an exchange needs a dash-separated instrument id. Longest first so USDT
// wins over USD.
var knownQuotes = []string{"USDT", "USDC", "TUSD", "BUSD", "USD", "EUR", "BTC", "ETH", "DAI"}

// ToCanonical converts an exchange-specific instrument id to the canonical
// Binance-style symbol: uppercase, no separators, BTC instead of XBT.
// Currently supported exchanges: binance, bybit, okx, kucoin.
func ToCanonical(exchange, sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	switch strings.ToLower(exchange) {
	case "okx":
		sym = strings.TrimSuffix(sym, "-SWAP")
		sym = strings.ReplaceAll(sym, "-", "")
	case "kucoin":
		sym = strings.ReplaceAll(sym, "-", "")
		if strings.HasPrefix(sym, "XBT") {
			sym = "BTC" + sym[3:]
		}
	}
	return sym
}

// ToExchange converts a canonical symbol to the instrument id the given
// exchange expects on its wire protocol.
func ToExchange(exchange, sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	switch strings.ToLower(exchange) {
	case "okx":
		return splitQuote(sym) + "-SWAP"
	case "kucoin":
		return splitQuote(sym)
	}
	return sym
}

// splitQuote inserts a dash before the first matching known quote suffix.
// Symbols with an unknown quote are returned unchanged.
func splitQuote(sym string) string {
	for _, q := range knownQuotes {
		if strings.HasSuffix(sym, q) && len(sym) > len(q) {
			return sym[:len(sym)-len(q)] + "-" + q
		}
	}
	return sym
}
