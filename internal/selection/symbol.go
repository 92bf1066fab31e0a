package selection

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/optacq/internal/contracts"
)

// OCCSymbol builds the OSI symbol, e.g. AAPL261120C00190000
func OCCSymbol(ticker string, expiration time.Time, optType contracts.OptionType, strike float64) string {
	cp := "C"
	if optType == contracts.OptionPut {
		cp = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", ticker, expiration.Format("060102"), cp, int64(math.Round(strike*1000)))
}
