package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"

	pricing "trentora-system/internal/services/pricing/handler"
)

type CatalogHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	resolver *pricing.TierResolver
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client, resolver *pricing.TierResolver) *CatalogHandler {
	return &CatalogHandler{db: db, redis: redisClient, resolver: resolver}
}

// ProductView is the catalog payload. Price is nil when hidden for
// guests, in which case Message carries the configured login prompt.
type ProductView struct {
	ID          int64          `json:"id"`
	SKU         string         `json:"sku"`
	ProductName string         `json:"product_name"`
	Category    string         `json:"category"`
	Purchasable bool           `json:"purchasable"`
	Price       *pricing.Quote `json:"price,omitempty"`
	Message     string         `json:"message,omitempty"`
}

type ProductRequest struct {
	SKU          string  `json:"sku" binding:"required"`
	ProductName  string  `json:"product_name" binding:"required"`
	Category     string  `json:"category"`
	RegularPrice string  `json:"regular_price" binding:"required"`
	SalePrice    *string `json:"sale_price"`
	IsActive     *bool   `json:"is_active"`
}

type ListProductsQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Search   string `form:"search"`
	Category string `form:"category"`
}

type GuestSettingsRequest struct {
	Enabled            *bool    `json:"enabled"`
	LoginMessage       *string  `json:"login_message"`
	ExcludedSKUs       []string `json:"excluded_skus"`
	ExcludedCategories []string `json:"excluded_categories"`
}

func (h *CatalogHandler) guestSettings(c *gin.Context) models.GuestPricingSettings {
	var settings models.GuestPricingSettings
	if err := h.db.WithContext(c.Request.Context()).First(&settings, 1).Error; err != nil {
		// Missing settings row behaves as hiding disabled.
		return models.GuestPricingSettings{Enabled: false}
	}
	return settings
}

func excluded(settings models.GuestPricingSettings, p models.Product) bool {
	for _, sku := range settings.ExcludedSKUs {
		if sku == p.SKU {
			return true
		}
	}
	for _, cat := range settings.ExcludedCategories {
		if cat != "" && cat == p.Category {
			return true
		}
	}
	return false
}

// renderProduct builds the viewer-dependent product payload.
func (h *CatalogHandler) renderProduct(c *gin.Context, p models.Product) (ProductView, error) {
	view := ProductView{
		ID:          p.ID,
		SKU:         p.SKU,
		ProductName: p.ProductName,
		Category:    p.Category,
	}

	userID, authenticated := middleware.GetAuthUserID(c)

	if !authenticated {
		settings := h.guestSettings(c)
		if settings.Enabled && !excluded(settings, p) {
			view.Purchasable = false
			view.Message = settings.LoginMessage
			return view, nil
		}
		quote, err := pricing.UndiscountedQuote(p.RegularPrice, p.SalePrice)
		if err != nil {
			return view, err
		}
		view.Price = &quote
		view.Purchasable = false
		return view, nil
	}

	role, _ := middleware.GetAuthRole(c)
	tier, err := h.resolver.ResolveForUser(c.Request.Context(), userID, role)
	if err != nil {
		return view, err
	}

	pct := ""
	if tier != nil {
		pct = tier.DiscountPercentage
	}
	quote, err := pricing.ComputeQuote(p.RegularPrice, p.SalePrice, pct)
	if err != nil {
		return view, err
	}
	view.Price = &quote
	view.Purchasable = true
	return view, nil
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid query parameters"))
		return
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	tx := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).Where("is_active = ?", true)
	if query.Search != "" {
		like := "%" + query.Search + "%"
		tx = tx.Where("product_name ILIKE ? OR sku ILIKE ?", like, like)
	}
	if query.Category != "" {
		tx = tx.Where("category = ?", query.Category)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to count products"))
		return
	}

	var products []models.Product
	if err := tx.Order("product_name asc").
		Offset((query.Page - 1) * query.PageSize).
		Limit(query.PageSize).
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list products"))
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		view, err := h.renderProduct(c, p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to price products"))
			return
		}
		views = append(views, view)
	}

	meta := utils.PageMeta{Page: query.Page, PageSize: query.PageSize, Total: total}
	c.JSON(http.StatusOK, utils.SuccessWithMetaResponse("Products retrieved", views, meta))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid product ID"))
		return
	}

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Product not found"))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load product"))
		}
		return
	}

	view, err := h.renderProduct(c, product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to price product"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Product retrieved", view))
}

// --- back office ---

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("sku, product_name and regular_price are required"))
		return
	}

	product := models.Product{
		SKU:          req.SKU,
		ProductName:  req.ProductName,
		Category:     req.Category,
		RegularPrice: req.RegularPrice,
		SalePrice:    req.SalePrice,
		IsActive:     true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create product"))
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("Product created", product))
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid product ID"))
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("sku, product_name and regular_price are required"))
		return
	}

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Product not found"))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load product"))
		}
		return
	}

	product.SKU = req.SKU
	product.ProductName = req.ProductName
	product.Category = req.Category
	product.RegularPrice = req.RegularPrice
	product.SalePrice = req.SalePrice
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update product"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Product updated", product))
}

func (h *CatalogHandler) GetGuestPricingSettings(c *gin.Context) {
	settings := h.guestSettings(c)
	c.JSON(http.StatusOK, utils.SuccessResponse("Settings retrieved", settings))
}

func (h *CatalogHandler) UpdateGuestPricingSettings(c *gin.Context) {
	var req GuestSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request body"))
		return
	}

	var settings models.GuestPricingSettings
	if err := h.db.WithContext(c.Request.Context()).FirstOrCreate(&settings, models.GuestPricingSettings{ID: 1}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load settings"))
		return
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.LoginMessage != nil {
		settings.LoginMessage = *req.LoginMessage
	}
	if req.ExcludedSKUs != nil {
		settings.ExcludedSKUs = req.ExcludedSKUs
	}
	if req.ExcludedCategories != nil {
		settings.ExcludedCategories = req.ExcludedCategories
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update settings"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Settings updated", settings))
}
