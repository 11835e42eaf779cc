package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trentora-system/internal/database/models"
)

func TestEvaluateCompanyAdmin(t *testing.T) {
	tests := []struct {
		name          string
		companyStatus string
		adminStatus   string
		wantCode      string
	}{
		{"active company active admin", models.CompanyStatusActive, models.AccountStatusActive, ""},
		{"pending company", models.CompanyStatusPending, models.AccountStatusActive, CodePendingApproval},
		{"suspended company", models.CompanyStatusSuspended, models.AccountStatusActive, CodeAccountSuspended},
		{"rejected company", models.CompanyStatusRejected, models.AccountStatusActive, CodeAccountRejected},
		{"suspended admin in active company", models.CompanyStatusActive, models.AccountStatusSuspended, CodeAdminSuspended},
		{"company suspension wins over admin suspension", models.CompanyStatusSuspended, models.AccountStatusSuspended, CodeAccountSuspended},
		{"pending wins over admin suspension", models.CompanyStatusPending, models.AccountStatusSuspended, CodePendingApproval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			denial := EvaluateCompanyAdmin(tt.companyStatus, tt.adminStatus)
			if tt.wantCode == "" {
				assert.Nil(t, denial)
				return
			}
			require.NotNil(t, denial)
			assert.Equal(t, tt.wantCode, denial.Code)
			assert.NotEmpty(t, denial.Message)
		})
	}
}

func TestEvaluateChild(t *testing.T) {
	tests := []struct {
		name          string
		childStatus   string
		companyStatus string
		wantCode      string
	}{
		{"active child active company", models.AccountStatusActive, models.CompanyStatusActive, ""},
		{"suspended child", models.AccountStatusSuspended, models.CompanyStatusActive, CodeAccountSuspended},
		{"child in suspended company", models.AccountStatusActive, models.CompanyStatusSuspended, CodeCompanySuspended},
		{"child in rejected company", models.AccountStatusActive, models.CompanyStatusRejected, CodeCompanyRejected},
		{"own suspension wins over company suspension", models.AccountStatusSuspended, models.CompanyStatusSuspended, CodeAccountSuspended},
		{"orphaned child still passes own check", models.AccountStatusActive, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			denial := EvaluateChild(tt.childStatus, tt.companyStatus)
			if tt.wantCode == "" {
				assert.Nil(t, denial)
				return
			}
			require.NotNil(t, denial)
			assert.Equal(t, tt.wantCode, denial.Code)
		})
	}
}

func TestEligibleForDiscount(t *testing.T) {
	assert.True(t, EligibleForDiscount(models.AccountStatusActive, models.CompanyStatusActive))
	assert.False(t, EligibleForDiscount(models.AccountStatusSuspended, models.CompanyStatusActive))
	assert.False(t, EligibleForDiscount(models.AccountStatusActive, models.CompanyStatusSuspended))
	assert.False(t, EligibleForDiscount(models.AccountStatusActive, models.CompanyStatusPending))
	assert.False(t, EligibleForDiscount(models.AccountStatusActive, models.CompanyStatusRejected))
}

func TestDenialError(t *testing.T) {
	denial := EvaluateCompanyAdmin(models.CompanyStatusPending, models.AccountStatusActive)
	require.NotNil(t, denial)
	assert.Equal(t, denial.Message, denial.Error())
}
