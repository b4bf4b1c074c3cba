package repository

import (
	"context"
	"time"

	"wb-aggregator/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxManager starts transactions shared by several repositories.
type TxManager interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// GoodsRepository defines the interface for goods data access operations.
type GoodsRepository interface {
	// Create inserts goods and fills in the generated ID and timestamps.
	Create(ctx context.Context, goods *model.Goods) error

	// Update overwrites every mutable column of the goods row.
	Update(ctx context.Context, goods *model.Goods) error

	// GetByID retrieves goods by ID. Returns nil, nil when not found.
	GetByID(ctx context.Context, id int64) (*model.Goods, error)

	// GetForUpdate retrieves goods by ID and locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Goods, error)

	// List retrieves goods matching the filter, newest first.
	List(ctx context.Context, filter model.GoodsFilter) ([]model.Goods, error)

	// Search matches the query against name and article.
	Search(ctx context.Context, query string, limit int) ([]model.Goods, error)

	// SetHidden changes the hidden flag of the given goods and returns how many rows changed.
	SetHidden(ctx context.Context, ids []int64, hidden bool) (int64, error)

	// ListCatalog retrieves visible goods with stock left on day.
	ListCatalog(ctx context.Context, day, now time.Time, categoryID *int64) ([]model.CatalogItem, error)

	// ListActivity retrieves the sale window and active flag of every goods row.
	ListActivity(ctx context.Context, tx pgx.Tx) ([]model.ActivityState, error)

	// SetActive applies active-flag changes within the provided transaction.
	SetActive(ctx context.Context, tx pgx.Tx, changes []model.ActivityChange) (int64, error)
}

// AvailabilityRepository defines the interface for daily stock operations.
type AvailabilityRepository interface {
	// DeleteFrom removes the goods' rows dated on or after from.
	DeleteFrom(ctx context.Context, tx pgx.Tx, goodsID int64, from time.Time) (int64, error)

	// InsertBatch inserts stock rows within the provided transaction.
	InsertBatch(ctx context.Context, tx pgx.Tx, rows []model.DailyAvailability) error

	// Decrement subtracts quantity from the day's stock only if enough is left.
	// Returns false when the row is missing or holds less than quantity.
	Decrement(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time, quantity int) (bool, error)

	// Increment adds quantity back to the day's stock.
	// Returns false when the row no longer exists.
	Increment(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time, quantity int) (bool, error)

	// Get retrieves the day's stock row. Returns nil, nil when not found.
	Get(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time) (*model.DailyAvailability, error)

	// PurgeBefore deletes rows dated before day.
	PurgeBefore(ctx context.Context, day time.Time) (int64, error)

	// List retrieves stock rows matching the filter ordered by goods and date.
	List(ctx context.Context, filter model.AvailabilityFilter) ([]model.DailyAvailability, error)
}

// ReservationRepository defines the interface for reservation data access operations.
type ReservationRepository interface {
	// Create inserts a reservation within the provided transaction.
	// Returns model.ErrDuplicateReservation when the user already holds a live
	// reservation for the goods on that day.
	Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) error

	// HasActiveOnDate reports whether the user holds a non-canceled reservation for the goods on day.
	HasActiveOnDate(ctx context.Context, userID, goodsID int64, day time.Time) (bool, error)

	// GetByID retrieves a reservation. Returns nil, nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)

	// GetForUpdate retrieves a reservation and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error)

	// Transition moves the reservation from one status to another.
	// Returns false when the reservation is no longer in the from status.
	Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.ReservationStatus) (bool, error)

	// SetConfirmation stores the evidence submitted for a confirmation step.
	SetConfirmation(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind model.ConfirmationKind, data *model.Confirmation) error

	// ListByUser retrieves the user's reservations, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.ReservationView, error)

	// List retrieves reservations matching the filter, newest first.
	List(ctx context.Context, filter model.ReservationFilter) ([]model.ReservationView, error)

	// CountForUserOnDate counts the user's non-canceled reservations for day.
	CountForUserOnDate(ctx context.Context, userID int64, day time.Time) (int, error)

	// SumReservedQuantity totals the quantity of non-canceled reservations for the goods.
	SumReservedQuantity(ctx context.Context, tx pgx.Tx, goodsID int64) (int, error)
}

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	AddNote(ctx context.Context, note *model.CategoryNote) error
	DeleteNote(ctx context.Context, categoryID, noteID int64) (bool, error)
}

// AdminRepository defines the interface for admin lookups.
type AdminRepository interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	Upsert(ctx context.Context, admin *model.Admin) error
	List(ctx context.Context) ([]model.Admin, error)
}
