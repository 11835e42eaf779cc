package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/utils"
)

type PricingHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	Resolver *TierResolver
}

func NewPricingHandler(db *gorm.DB, redisClient *redis.Client) *PricingHandler {
	return &PricingHandler{
		db:       db,
		redis:    redisClient,
		Resolver: NewTierResolver(db, redisClient),
	}
}

type TierRequest struct {
	TierName           string `json:"tier_name" binding:"required"`
	DiscountPercentage string `json:"discount_percentage" binding:"required"`
}

type AssignTierRequest struct {
	TierID *int64 `json:"tier_id"`
}

func validDiscountPercentage(raw string) (string, bool) {
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return "", false
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return "", false
	}
	return pct.StringFixed(2), true
}

// ListTiers returns all tiers ordered by discount percentage.
func (h *PricingHandler) ListTiers(c *gin.Context) {
	var tiers []models.DiscountTier
	if err := h.db.WithContext(c.Request.Context()).
		Order("discount_percentage asc").
		Find(&tiers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list tiers"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Tiers retrieved", tiers))
}

func (h *PricingHandler) CreateTier(c *gin.Context) {
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("tier_name and discount_percentage are required"))
		return
	}

	pct, ok := validDiscountPercentage(req.DiscountPercentage)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("discount_percentage must be between 0 and 100"))
		return
	}

	tier := models.DiscountTier{
		TierName:           req.TierName,
		DiscountPercentage: pct,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&tier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create tier"))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Tier created", tier))
}

func (h *PricingHandler) UpdateTier(c *gin.Context) {
	tierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid tier ID"))
		return
	}

	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("tier_name and discount_percentage are required"))
		return
	}

	pct, ok := validDiscountPercentage(req.DiscountPercentage)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("discount_percentage must be between 0 and 100"))
		return
	}

	var tier models.DiscountTier
	if err := h.db.WithContext(c.Request.Context()).First(&tier, tierID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Tier not found"))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load tier"))
		}
		return
	}

	tier.TierName = req.TierName
	tier.DiscountPercentage = pct
	if err := h.db.WithContext(c.Request.Context()).Save(&tier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update tier"))
		return
	}

	h.Resolver.InvalidateTierCaches(c.Request.Context(), tierID)
	c.JSON(http.StatusOK, utils.SuccessResponse("Tier updated", tier))
}

// DeleteTier removes a tier. Companies referencing it get their
// tier_id nulled first; the companies themselves are never touched.
func (h *PricingHandler) DeleteTier(c *gin.Context) {
	tierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid tier ID"))
		return
	}

	ctx := c.Request.Context()

	// Enumerate the referencing companies before the reference is gone.
	var companyIDs []int64
	if err := h.db.WithContext(ctx).Model(&models.Company{}).
		Where("tier_id = ?", tierID).
		Pluck("id", &companyIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to delete tier"))
		return
	}

	h.Resolver.InvalidateCompanyTierCache(ctx, companyIDs...)

	if err := h.db.WithContext(ctx).Model(&models.Company{}).
		Where("tier_id = ?", tierID).
		Update("tier_id", nil).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to unassign tier from companies"))
		return
	}

	if err := h.db.WithContext(ctx).Delete(&models.DiscountTier{}, tierID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to delete tier"))
		return
	}

	// A lookup racing between the first invalidation and the update can
	// re-cache the old tier; drop the keys once more now that the
	// references are gone.
	h.Resolver.InvalidateCompanyTierCache(ctx, companyIDs...)

	c.JSON(http.StatusOK, utils.SuccessResponse("Tier deleted", nil))
}

// AssignTier sets or clears a company's tier.
func (h *PricingHandler) AssignTier(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid company ID"))
		return
	}

	var req AssignTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request body"))
		return
	}

	ctx := c.Request.Context()

	var company models.Company
	if err := h.db.WithContext(ctx).First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Company not found"))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load company"))
		}
		return
	}

	if req.TierID != nil {
		var tier models.DiscountTier
		if err := h.db.WithContext(ctx).First(&tier, *req.TierID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, utils.ErrorResponse("Tier not found"))
			} else {
				c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load tier"))
			}
			return
		}
	}

	if err := h.db.WithContext(ctx).Model(&company).Update("tier_id", req.TierID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to assign tier"))
		return
	}

	h.Resolver.InvalidateCompanyTierCache(ctx, companyID)
	c.JSON(http.StatusOK, utils.SuccessResponse("Tier assignment updated", nil))
}
