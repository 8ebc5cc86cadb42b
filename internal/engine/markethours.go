package engine

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock moment within a market's trading day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Market describes a reference market's trading window in its own
// timezone. The gate is independent of the host machine locale.
type Market struct {
	Timezone string
	Open     TimeOfDay
	Close    TimeOfDay
}

// NYSE is the default reference market.
var NYSE = Market{
	Timezone: "America/New_York",
	Open:     TimeOfDay{Hour: 9, Minute: 30},
	Close:    TimeOfDay{Hour: 16},
}

// MarketOpen reports whether now falls inside the market's trading window.
// Weekends are closed; holidays are not modelled, which at worst delays a
// daily game's settlement to the next run.
func MarketOpen(now time.Time, market Market) (bool, error) {
	loc, err := time.LoadLocation(market.Timezone)
	if err != nil {
		return false, fmt.Errorf("load market timezone %q: %w", market.Timezone, err)
	}
	local := now.In(loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false, nil
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= market.Open.minutes() && minute < market.Close.minutes(), nil
}
