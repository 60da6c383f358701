// Package persistence adapts the engine's run-event and final-itinerary
// storage onto GORM, grounded on orm/itinerary.go's Create/Get/ToPB
// pattern — generalized from that package's flat relational schema (which
// models bookings and reservations this domain doesn't have) into an
// append-only event log plus a one-row-per-run final itinerary table,
// since the planning engine never books anything: it only ever proposes.
package persistence

import "time"

// RunEvent is one append-only row in a run's progress log (spec §5,
// §6: "Event sink: append-only per run; multiple consumers may
// subscribe").
type RunEvent struct {
	ID          uint `gorm:"primaryKey"`
	TraceID     string `gorm:"index"`
	Kind        string
	Node        string
	Status      string
	DetailsJSON string
	Ts          time.Time
}

// FinalItinerary is the one terminal row a completed run writes, keyed by
// trace id. The full Itinerary is kept as a JSON payload alongside a few
// indexed summary columns useful for listing runs without deserializing
// every payload.
type FinalItinerary struct {
	ID                 uint   `gorm:"primaryKey"`
	TraceID            string `gorm:"uniqueIndex"`
	TotalCents         int64
	CurrencyDisclaimer string
	PayloadJSON        string
	CreatedAt          time.Time
}
