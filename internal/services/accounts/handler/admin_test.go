package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
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

	orders "trentora-system/internal/services/orders/handler"
	pricing "trentora-system/internal/services/pricing/handler"
)

func newTestEnv(t *testing.T) (*AccountsHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m := mailer.New(config.SMTPConfig{Host: "127.0.0.1", Port: "1", From: "noreply@test.local"})
	pricingHandler := pricing.NewPricingHandler(db, redisClient)
	orderHandler := orders.NewOrderHandler(db, redisClient, m, pricingHandler.Resolver)

	h := NewAccountsHandler(db, redisClient, m, pricingHandler.Resolver, orderHandler,
		config.AuthConfig{}, config.StoreConfig{RequireApproval: true})
	return h, db
}

func idRequest(method string, id int64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatInt(id, 10)}}
	return c, w
}

func seedCompany(t *testing.T, db *gorm.DB, childCount int) models.Company {
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

	for i := 0; i < childCount; i++ {
		u := models.User{
			Email:    fmt.Sprintf("child%d@acme.test", i),
			Password: "x",
			Role:     models.RoleCompanyChild,
			IsActive: true,
		}
		require.NoError(t, db.Create(&u).Error)
		require.NoError(t, db.Create(&models.ChildAccount{
			UserID:    u.ID,
			CompanyID: company.ID,
			Status:    models.AccountStatusActive,
		}).Error)
	}
	return company
}

func childStatusCounts(t *testing.T, db *gorm.DB, companyID int64) (active, suspended int64) {
	t.Helper()
	db.Model(&models.ChildAccount{}).
		Where("company_id = ? AND status = ?", companyID, models.AccountStatusActive).
		Count(&active)
	db.Model(&models.ChildAccount{}).
		Where("company_id = ? AND status = ?", companyID, models.AccountStatusSuspended).
		Count(&suspended)
	return active, suspended
}

func TestSuspendCompanyCascadesToChildren(t *testing.T) {
	h, db := newTestEnv(t)
	company := seedCompany(t, db, 3)

	c, w := idRequest(http.MethodPost, company.ID)
	h.SuspendCompany(c)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Company
	require.NoError(t, db.First(&got, company.ID).Error)
	assert.Equal(t, models.CompanyStatusSuspended, got.Status)

	active, suspended := childStatusCounts(t, db, company.ID)
	assert.EqualValues(t, 0, active)
	assert.EqualValues(t, 3, suspended)
}

func TestSuspendCompanyIdempotent(t *testing.T) {
	h, db := newTestEnv(t)
	company := seedCompany(t, db, 2)

	c, w := idRequest(http.MethodPost, company.ID)
	h.SuspendCompany(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = idRequest(http.MethodPost, company.ID)
	h.SuspendCompany(c)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Company
	require.NoError(t, db.First(&got, company.ID).Error)
	assert.Equal(t, models.CompanyStatusSuspended, got.Status)

	_, suspended := childStatusCounts(t, db, company.ID)
	assert.EqualValues(t, 2, suspended)
}

func TestActivateCompanyRestoresChildren(t *testing.T) {
	h, db := newTestEnv(t)
	company := seedCompany(t, db, 3)

	c, w := idRequest(http.MethodPost, company.ID)
	h.SuspendCompany(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = idRequest(http.MethodPost, company.ID)
	h.ActivateCompany(c)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Company
	require.NoError(t, db.First(&got, company.ID).Error)
	assert.Equal(t, models.CompanyStatusActive, got.Status)

	active, suspended := childStatusCounts(t, db, company.ID)
	assert.EqualValues(t, 3, active)
	assert.EqualValues(t, 0, suspended)

	// repeat activation stays a no-op success
	c, w = idRequest(http.MethodPost, company.ID)
	h.ActivateCompany(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSuspendCompanyRejectsPending(t *testing.T) {
	h, db := newTestEnv(t)
	company := seedCompany(t, db, 0)
	require.NoError(t, db.Model(&company).Update("status", models.CompanyStatusPending).Error)

	c, w := idRequest(http.MethodPost, company.ID)
	h.SuspendCompany(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
