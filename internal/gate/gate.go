// Package gate decides whether an account may authenticate or keep an
// authenticated session, based on company, admin and child statuses.
// Every checkpoint (login, per-request middleware) re-reads current
// state from the database, so a status change takes effect no later
// than the subject's next request.
package gate

import (
	"context"

	"gorm.io/gorm"

	"trentora-system/internal/database/models"
)

// Machine-readable denial codes, mirrored in API error envelopes.
const (
	CodePendingApproval  = "pending_approval"
	CodeAccountSuspended = "account_suspended"
	CodeAccountRejected  = "account_rejected"
	CodeAdminSuspended   = "admin_suspended"
	CodeCompanySuspended = "company_suspended"
	CodeCompanyRejected  = "company_rejected"
)

// Denial is a typed auth failure carrying a machine code and a
// human-readable message.
type Denial struct {
	Code    string
	Message string
}

func (d *Denial) Error() string {
	return d.Message
}

func deny(code, message string) *Denial {
	return &Denial{Code: code, Message: message}
}

// EvaluateCompanyAdmin gates a company admin on the company state and
// the orthogonal admin sub-state. Returns nil when login is allowed.
func EvaluateCompanyAdmin(companyStatus, adminStatus string) *Denial {
	switch companyStatus {
	case models.CompanyStatusPending:
		return deny(CodePendingApproval, "Your company registration is pending approval.")
	case models.CompanyStatusSuspended:
		return deny(CodeAccountSuspended, "Your company account has been suspended. Please contact the site administrator.")
	case models.CompanyStatusRejected:
		return deny(CodeAccountRejected, "Your company registration has been rejected. Please contact the site administrator.")
	}
	if adminStatus == models.AccountStatusSuspended {
		return deny(CodeAdminSuspended, "Your admin account has been suspended. Please contact the site administrator.")
	}
	return nil
}

// EvaluateChild gates a child account on its own sub-state and the
// parent company state. The admin sub-state never affects children.
func EvaluateChild(childStatus, companyStatus string) *Denial {
	if childStatus == models.AccountStatusSuspended {
		return deny(CodeAccountSuspended, "Your account has been suspended. Please contact your company administrator.")
	}
	switch companyStatus {
	case models.CompanyStatusSuspended:
		return deny(CodeCompanySuspended, "Your company account has been suspended. Please contact the site administrator.")
	case models.CompanyStatusRejected:
		return deny(CodeCompanyRejected, "Your company registration has been rejected. Please contact the site administrator.")
	}
	return nil
}

// EligibleForDiscount reports whether a child may receive tier pricing:
// both the child row and the parent company must be active. The admin
// sub-state is irrelevant here.
func EligibleForDiscount(childStatus, companyStatus string) bool {
	return childStatus == models.AccountStatusActive && companyStatus == models.CompanyStatusActive
}

// Resolver re-reads account state from the database for a checkpoint.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Check fetches current state for the user and applies the gate for
// its role. A deactivated or deleted user is denied regardless of
// role; users without B2B rows otherwise pass through untouched.
func (r *Resolver) Check(ctx context.Context, userID int64, role string) (*Denial, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "is_active").First(&user, userID).Error
	if err == gorm.ErrRecordNotFound {
		return deny(CodeAccountSuspended, "Your account has been deactivated."), nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return deny(CodeAccountSuspended, "Your account has been deactivated."), nil
	}

	switch role {
	case models.RoleCompanyAdmin:
		var company models.Company
		err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return EvaluateCompanyAdmin(company.Status, company.AdminStatus), nil

	case models.RoleCompanyChild:
		var child models.ChildAccount
		err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&child).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		var company models.Company
		err = r.db.WithContext(ctx).First(&company, child.CompanyID).Error
		if err == gorm.ErrRecordNotFound {
			return EvaluateChild(child.Status, ""), nil
		}
		if err != nil {
			return nil, err
		}
		return EvaluateChild(child.Status, company.Status), nil
	}

	return nil, nil
}
