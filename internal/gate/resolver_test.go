package gate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trentora-system/internal/database"
	"trentora-system/internal/database/models"
)

func newResolverTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestResolverCheckDeniesDeactivatedUser(t *testing.T) {
	db := newResolverTestDB(t)
	r := NewResolver(db)
	ctx := context.Background()

	user := models.User{Email: "c@shop.test", Password: "x", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Model(&user).Update("is_active", false).Error)

	// a still-valid token must stop working on the next request
	denial, err := r.Check(ctx, user.ID, user.Role)
	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, CodeAccountSuspended, denial.Code)
}

func TestResolverCheckDeniesDeletedUser(t *testing.T) {
	db := newResolverTestDB(t)
	r := NewResolver(db)

	denial, err := r.Check(context.Background(), 9999, models.RoleCustomer)
	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, CodeAccountSuspended, denial.Code)
}

func TestResolverCheckPassesActiveCustomer(t *testing.T) {
	db := newResolverTestDB(t)
	r := NewResolver(db)

	user := models.User{Email: "c@shop.test", Password: "x", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	denial, err := r.Check(context.Background(), user.ID, user.Role)
	require.NoError(t, err)
	assert.Nil(t, denial)
}

func TestResolverCheckReadsCurrentCompanyState(t *testing.T) {
	db := newResolverTestDB(t)
	r := NewResolver(db)
	ctx := context.Background()

	admin := models.User{Email: "admin@acme.test", Password: "x", Role: models.RoleCompanyAdmin, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)
	company := models.Company{
		UserID:      admin.ID,
		CompanyName: "Acme Industrial",
		Status:      models.CompanyStatusActive,
		AdminStatus: models.AccountStatusActive,
	}
	require.NoError(t, db.Create(&company).Error)

	denial, err := r.Check(ctx, admin.ID, admin.Role)
	require.NoError(t, err)
	assert.Nil(t, denial)

	require.NoError(t, db.Model(&company).Update("status", models.CompanyStatusSuspended).Error)

	denial, err = r.Check(ctx, admin.ID, admin.Role)
	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, CodeAccountSuspended, denial.Code)
}
