// Package domain defines the planning engine's data model: the immutable
// Request, the Choice/Slot/DayPlan/Plan hierarchy a run builds up, the
// final Itinerary, and the PlanState threaded through every stage.
//
// Monetary values are always integer cents. Timestamps are absolute UTC;
// an IANA zone string travels alongside wherever wall-clock reasoning is
// required. Durations are integer seconds.
package domain

import "time"

// Window is an absolute UTC time range with the IANA zone needed for
// wall-clock reasoning (venue hours, scheduling).
type Window struct {
	StartUTC time.Time
	EndUTC   time.Time
	TZ       string
}

// Duration returns the window's span.
func (w Window) Duration() time.Duration {
	return w.EndUTC.Sub(w.StartUTC)
}

// Overlaps reports whether w and other share any instant.
func (w Window) Overlaps(other Window) bool {
	return w.StartUTC.Before(other.EndUTC) && other.StartUTC.Before(w.EndUTC)
}

// LockedSlot pins an attraction (or other activity) to an exact window;
// Generate must overlay it verbatim and Repair must never touch it.
type LockedSlot struct {
	Window Window
	Kind   ChoiceKind
	Name   string
}

// Prefs are the soft and hard preference constraints on a Request.
type Prefs struct {
	KidFriendly    bool
	Themes         map[string]bool
	AvoidOvernight bool
	LockedSlots    []LockedSlot
}

// HasTheme reports whether theme is requested.
func (p Prefs) HasTheme(theme string) bool {
	return p.Themes[theme]
}

// Request is the immutable input to a planning run.
type Request struct {
	City        string
	Window      Window
	BudgetCents int64
	Airports    []string // ordered set of IATA codes, >= 1
	Prefs       Prefs
}

// Days returns the inclusive day count of the request window, rounded up.
func (r Request) Days() int {
	d := r.Window.EndUTC.Sub(r.Window.StartUTC)
	days := int(d.Hours() / 24)
	if d.Hours() > float64(days*24) {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// Validate checks the Request against spec §3's structural constraints,
// returning every failure found rather than the first.
func (r Request) Validate() []string {
	var errs []string

	if r.City == "" {
		errs = append(errs, "city must be non-empty")
	}
	if !(r.Window.EndUTC.After(r.Window.StartUTC)) {
		errs = append(errs, "window end must be after start")
	} else {
		days := r.Window.EndUTC.Sub(r.Window.StartUTC).Hours() / 24
		if days < 1 || days > 7 {
			errs = append(errs, "window duration must be between 1 and 7 days")
		}
	}
	if r.Window.TZ == "" {
		errs = append(errs, "window tz must be a valid IANA identifier")
	} else if _, err := time.LoadLocation(r.Window.TZ); err != nil {
		errs = append(errs, "window tz is not a valid IANA identifier: "+err.Error())
	}
	if r.BudgetCents <= 0 {
		errs = append(errs, "budget_cents must be positive")
	}
	if len(r.Airports) == 0 {
		errs = append(errs, "airports must contain at least one IATA code")
	}
	for _, ls := range r.Prefs.LockedSlots {
		if !r.Window.StartUTC.IsZero() && (ls.Window.StartUTC.Before(r.Window.StartUTC) || ls.Window.EndUTC.After(r.Window.EndUTC)) {
			errs = append(errs, "locked slot "+ls.Name+" falls outside the request window")
		}
	}
	return errs
}
