package persistence

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/engine"
)

// Store is a GORM-backed implementation of engine.SessionStore, grounded
// on orm/itinerary.go's Create/Get pattern (db.Create, db errors bubbled
// straight up, no retry wrapper — persistence failures are handled by the
// caller logging and continuing, not by this package).
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Migrate creates the two tables this package owns, idempotently.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&RunEvent{}, &FinalItinerary{})
}

func (s *Store) AppendEvent(ctx context.Context, traceID string, e engine.Event) error {
	details, _ := json.Marshal(e.Details)
	row := RunEvent{
		TraceID:     traceID,
		Kind:        string(e.Kind),
		Node:        e.Node,
		Status:      e.Status,
		DetailsJSON: string(details),
		Ts:          e.Ts,
	}
	return s.DB.WithContext(ctx).Create(&row).Error
}

func (s *Store) SaveItinerary(ctx context.Context, traceID string, it domain.Itinerary) error {
	payload, err := json.Marshal(it)
	if err != nil {
		return err
	}
	row := FinalItinerary{
		TraceID:            traceID,
		TotalCents:         it.CostBreakdown.TotalCents,
		CurrencyDisclaimer: it.CostBreakdown.CurrencyDisclaimer,
		PayloadJSON:        string(payload),
		CreatedAt:          it.Metadata.CreatedAt,
	}
	return s.DB.WithContext(ctx).
		Where(FinalItinerary{TraceID: traceID}).
		Assign(row).
		FirstOrCreate(&row).Error
}

// Get retrieves a previously saved itinerary by trace id, grounded on
// orm/itinerary.go's GetItinerary lookup-by-id shape.
func (s *Store) Get(ctx context.Context, traceID string) (domain.Itinerary, error) {
	var row FinalItinerary
	if err := s.DB.WithContext(ctx).Where("trace_id = ?", traceID).First(&row).Error; err != nil {
		return domain.Itinerary{}, err
	}
	var it domain.Itinerary
	if err := json.Unmarshal([]byte(row.PayloadJSON), &it); err != nil {
		return domain.Itinerary{}, err
	}
	return it, nil
}
