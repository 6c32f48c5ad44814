package gamma

import (
	"fmt"
	"strings"
	"time"
)

var coinNames = map[string]string{
	"btc": "bitcoin",
	"eth": "ethereum",
	"sol": "solana",
	"xrp": "xrp",
}

// easternTime is the market calendar zone for hourly-and-longer slugs.
var easternTime = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// Cycle is one discovered market cycle: its Gamma slug and boundary
// timestamps in unix seconds.
type Cycle struct {
	Slug  string
	Start int64
	End   int64
}

// CurrentCycle computes the cycle containing now for the given coin and
// period. The cycle start is aligned down to the period boundary; sub-hourly
// markets use timestamped slugs while hourly and longer use the Eastern-time
// calendar form.
func CurrentCycle(coin string, periodMinutes int, now time.Time) Cycle {
	period := time.Duration(periodMinutes) * time.Minute
	start := now.Truncate(period)
	end := start.Add(period)

	return Cycle{
		Slug:  slugFor(coin, periodMinutes, start),
		Start: start.Unix(),
		End:   end.Unix(),
	}
}

func slugFor(coin string, periodMinutes int, start time.Time) string {
	if periodMinutes < 60 {
		return fmt.Sprintf("%s-updown-%dm-%d", coin, periodMinutes, start.Unix())
	}

	et := start.In(easternTime)
	month := strings.ToLower(et.Format("January"))
	hour := strings.ToLower(et.Format("3pm"))
	return fmt.Sprintf("%s-up-or-down-%s-%d-%s-et", coinNames[coin], month, et.Day(), hour)
}
