package user

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLender   Role = "lender"
	RoleBorrower Role = "borrower"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleLender, RoleBorrower:
		return Role(s), true
	}
	return "", false
}

// FraudAssessment is one historical fraud-score computation. At most ten are
// retained per user, newest first.
type FraudAssessment struct {
	Score       int32     `json:"score"`
	Level       string    `json:"level"`
	GeneratedAt time.Time `json:"generated_at"`
}

type FraudStatus struct {
	Score          int32             `json:"score"`
	Level          string            `json:"level"`
	Flags          []string          `json:"flags"`
	Recommendation string            `json:"recommendation"`
	UpdatedAt      time.Time         `json:"updated_at"`
	History        []FraudAssessment `json:"history"`
}

type Entity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role

	// IDNumber is the borrower's national ID number. Loans reference
	// borrowers by this value, not by primary key.
	IDNumber string
	Mobile   string
	Address  string

	DeviceTokens []string

	PlanID          *string
	PlanPurchasedAt *time.Time
	PlanExpiresAt   *time.Time

	Fraud *FraudStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IDNumber     string
	Mobile       string
	Address      string
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	GetByEmail(ctx context.Context, email string) (*Entity, error)
	GetByIDNumber(ctx context.Context, idNumber string) (*Entity, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	AddDeviceToken(ctx context.Context, userID, token string) error
	SetPlan(ctx context.Context, userID, planID string, purchasedAt, expiresAt time.Time) error
	SetFraudStatus(ctx context.Context, userID string, fs FraudStatus) error
}
