package postgres

import (
	"github.com/codecraftwt/loan-backend-sub000/internal/auth"
	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
	plandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/plan"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
)

var (
	_ userdomain.Repository  = (*UserRepository)(nil)
	_ loandomain.Repository  = (*LoanRepository)(nil)
	_ plandomain.Repository  = (*PlanRepository)(nil)
	_ notify.Repository      = (*NotificationRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
)
