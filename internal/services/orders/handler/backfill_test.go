package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trentora-system/config"
	"trentora-system/internal/database"
	"trentora-system/internal/database/models"
	"trentora-system/internal/mailer"

	pricing "trentora-system/internal/services/pricing/handler"
)

func newOrdersTestEnv(t *testing.T) (*OrderHandler, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m := mailer.New(config.SMTPConfig{Host: "127.0.0.1", Port: "1", From: "noreply@test.local"})
	resolver := pricing.NewTierResolver(db, redisClient)
	return NewOrderHandler(db, redisClient, m, resolver), db, mr
}

func seedCompanyWithOrders(t *testing.T, db *gorm.DB) (models.Company, models.User, models.User) {
	t.Helper()

	admin := models.User{Email: "admin@acme.test", Password: "x", Role: models.RoleCompanyAdmin, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)
	company := models.Company{
		UserID:      admin.ID,
		CompanyName: "Acme Industrial",
		Status:      models.CompanyStatusActive,
		AdminStatus: models.AccountStatusActive,
	}
	require.NoError(t, db.Create(&company).Error)

	childUser := models.User{Email: "child@acme.test", Password: "x", Role: models.RoleCompanyChild, IsActive: true}
	require.NoError(t, db.Create(&childUser).Error)
	require.NoError(t, db.Create(&models.ChildAccount{
		UserID:    childUser.ID,
		CompanyID: company.ID,
		Status:    models.AccountStatusActive,
	}).Error)

	seedOrders := []models.Order{
		{UserID: admin.ID, Status: models.OrderStatusCompleted, Total: "100.00"},
		{UserID: childUser.ID, Status: models.OrderStatusProcessing, Total: "50.00"},
		{UserID: admin.ID, Status: models.OrderStatusCancelled, Total: "10.00"},
	}
	for i := range seedOrders {
		require.NoError(t, db.Create(&seedOrders[i]).Error)
	}
	return company, admin, childUser
}

func TestRefreshCompanyOrders_IdempotentPerOrder(t *testing.T) {
	h, db, _ := newOrdersTestEnv(t)
	company, _, _ := seedCompanyWithOrders(t, db)
	ctx := context.Background()

	inserted, err := h.RefreshCompanyOrders(ctx, false)
	require.NoError(t, err)
	// cancelled orders never reach the ledger
	assert.EqualValues(t, 2, inserted)

	// force a second full scan: no duplicates appear
	inserted, err = h.RefreshCompanyOrders(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inserted)

	var ledger []models.CompanyOrder
	require.NoError(t, db.Find(&ledger).Error)
	require.Len(t, ledger, 2)

	seen := map[int64]bool{}
	for _, row := range ledger {
		assert.False(t, seen[row.OrderID])
		seen[row.OrderID] = true
		assert.Equal(t, company.ID, row.CompanyID)
	}
}

func TestRefreshCompanyOrders_ThrottledByMarker(t *testing.T) {
	h, db, mr := newOrdersTestEnv(t)
	seedCompanyWithOrders(t, db)
	ctx := context.Background()

	inserted, err := h.RefreshCompanyOrders(ctx, false)
	require.NoError(t, err)
	require.EqualValues(t, 2, inserted)
	require.True(t, mr.Exists(BACKFILL_MARKER_KEY))

	// marker present and ledger non-empty: the scan is skipped
	inserted, err = h.RefreshCompanyOrders(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inserted)
}

func TestRefreshCompanyOrders_EmptyLedgerBypassesMarker(t *testing.T) {
	h, db, mr := newOrdersTestEnv(t)
	seedCompanyWithOrders(t, db)
	ctx := context.Background()

	require.NoError(t, mr.Set(BACKFILL_MARKER_KEY, "1"))

	inserted, err := h.RefreshCompanyOrders(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inserted)
}
