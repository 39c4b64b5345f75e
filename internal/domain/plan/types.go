package plan

import (
	"context"
	"time"
)

type Features struct {
	UnlimitedLoans    bool `json:"unlimited_loans"`
	AdvancedAnalytics bool `json:"advanced_analytics"`
	PrioritySupport   bool `json:"priority_support"`
}

type Entity struct {
	ID             string
	Name           string
	Description    string
	DurationMonths int32
	MonthlyPrice   int64
	Features       Features
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CreateInput struct {
	Name           string
	Description    string
	DurationMonths int32
	MonthlyPrice   int64
	Features       Features
}

type UpdateInput struct {
	Name           *string
	Description    *string
	DurationMonths *int32
	MonthlyPrice   *int64
	Features       *Features
	Active         *bool
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, activeOnly bool) ([]Entity, error)
	// ExistsDuplicate enforces uniqueness over the name+price+features
	// combination, not name alone.
	ExistsDuplicate(ctx context.Context, name string, monthlyPrice int64, features Features, excludeID string) (bool, error)
}
