package contracts

// TimeframeWindow is the days-to-expiration window assigned to one request
type TimeframeWindow struct {
	MinDTE    int    `json:"min_dte"`
	MaxDTE    int    `json:"max_dte"`
	TargetDTE int    `json:"target_dte"`
	Label     string `json:"label"`
}

// Valid checks min <= target <= max
func (w TimeframeWindow) Valid() bool {
	return w.MinDTE >= 0 && w.MinDTE <= w.TargetDTE && w.TargetDTE <= w.MaxDTE
}

// Contains reports whether dte falls inside [MinDTE, MaxDTE]
func (w TimeframeWindow) Contains(dte int) bool {
	return dte >= w.MinDTE && dte <= w.MaxDTE
}
