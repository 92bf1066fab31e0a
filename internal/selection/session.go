package selection

import (
	"strings"
	"time"
	_ "time/tzdata" // America/New_York on hosts without a zoneinfo database
)

// Session is the market session a snapshot was observed in
type Session string

const (
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "after_hours"
)

var newYork = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ParseSession parses "regular" / "after_hours"
func ParseSession(s string) (Session, bool) {
	switch Session(strings.ToLower(strings.TrimSpace(s))) {
	case SessionRegular:
		return SessionRegular, true
	case SessionAfterHours:
		return SessionAfterHours, true
	}
	return "", false
}

// SessionAt reports the US equity session at t: 09:30–16:00 New York time,
// Monday to Friday. Exchange holidays are not modelled and read as regular.
func SessionAt(t time.Time) Session {
	ny := t.In(newYork)
	if wd := ny.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return SessionAfterHours
	}
	minutes := ny.Hour()*60 + ny.Minute()
	if minutes >= 9*60+30 && minutes < 16*60 {
		return SessionRegular
	}
	return SessionAfterHours
}

// ResolveSession honours a configured override, else derives it from t
func ResolveSession(override string, t time.Time) Session {
	if s, ok := ParseSession(override); ok {
		return s
	}
	return SessionAt(t)
}
