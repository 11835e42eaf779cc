package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trentora-system/internal/database"
	"trentora-system/internal/database/models"
)

func newPricingTestEnv(t *testing.T) (*PricingHandler, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewPricingHandler(db, redisClient), db, mr
}

func tierRequest(method string, id int64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatInt(id, 10)}}
	return c, w
}

func TestDeleteTierUnassignsCompanies(t *testing.T) {
	h, db, mr := newPricingTestEnv(t)
	ctx := context.Background()

	tier := models.DiscountTier{TierName: "Gold", DiscountPercentage: "20.00"}
	require.NoError(t, db.Create(&tier).Error)

	companies := make([]models.Company, 2)
	for i := range companies {
		companies[i] = models.Company{
			UserID:      int64(100 + i),
			CompanyName: fmt.Sprintf("Company %d", i),
			Status:      models.CompanyStatusActive,
			AdminStatus: models.AccountStatusActive,
			TierID:      &tier.ID,
		}
		require.NoError(t, db.Create(&companies[i]).Error)
	}

	// warm the cache so deletion has something to invalidate
	cached, err := h.Resolver.CompanyTier(ctx, companies[0].ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	cacheKey := fmt.Sprintf("%s%d", COMPANY_TIER_CACHE_KEY, companies[0].ID)
	require.True(t, mr.Exists(cacheKey))

	c, w := tierRequest(http.MethodDelete, tier.ID)
	h.DeleteTier(c)
	require.Equal(t, http.StatusOK, w.Code)

	var tierCount int64
	db.Model(&models.DiscountTier{}).Where("id = ?", tier.ID).Count(&tierCount)
	assert.EqualValues(t, 0, tierCount)

	// companies survive, only the reference is cleared
	var survivors []models.Company
	require.NoError(t, db.Find(&survivors).Error)
	require.Len(t, survivors, 2)
	for _, company := range survivors {
		assert.Nil(t, company.TierID)
	}

	assert.False(t, mr.Exists(cacheKey))

	resolved, err := h.Resolver.CompanyTier(ctx, companies[0].ID)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestDeleteTierUnknownID(t *testing.T) {
	h, _, _ := newPricingTestEnv(t)

	c, w := tierRequest(http.MethodDelete, 9999)
	h.DeleteTier(c)
	// unknown tier deletes nothing and unassigns nothing
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssignTierInvalidatesCache(t *testing.T) {
	h, db, mr := newPricingTestEnv(t)
	ctx := context.Background()

	tier := models.DiscountTier{TierName: "Silver", DiscountPercentage: "10.00"}
	require.NoError(t, db.Create(&tier).Error)
	company := models.Company{UserID: 7, CompanyName: "Acme", Status: models.CompanyStatusActive, AdminStatus: models.AccountStatusActive}
	require.NoError(t, db.Create(&company).Error)

	// cache the "no tier" miss first
	resolved, err := h.Resolver.CompanyTier(ctx, company.ID)
	require.NoError(t, err)
	require.Nil(t, resolved)
	cacheKey := fmt.Sprintf("%s%d", COMPANY_TIER_CACHE_KEY, company.ID)
	require.True(t, mr.Exists(cacheKey))

	c, w := tierRequest(http.MethodPost, company.ID)
	c.Request = httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(fmt.Sprintf(`{"tier_id": %d}`, tier.ID)))
	c.Request.Header.Set("Content-Type", "application/json")
	h.AssignTier(c)
	require.Equal(t, http.StatusOK, w.Code)

	resolved, err = h.Resolver.CompanyTier(ctx, company.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "10.00", resolved.DiscountPercentage)
}
