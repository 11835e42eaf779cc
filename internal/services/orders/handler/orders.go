package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/mailer"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"

	pricing "trentora-system/internal/services/pricing/handler"
)

type OrderHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	mailer   *mailer.Mailer
	resolver *pricing.TierResolver
}

func NewOrderHandler(db *gorm.DB, redisClient *redis.Client, m *mailer.Mailer, resolver *pricing.TierResolver) *OrderHandler {
	return &OrderHandler{db: db, redis: redisClient, mailer: m, resolver: resolver}
}

type CheckoutItem struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int32 `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequest struct {
	Items []CheckoutItem `json:"items" binding:"required,min=1,dive"`
}

// companyAttribution resolves which company an order belongs to.
type companyAttribution struct {
	companyID     int64
	placedByChild bool
	adminUserID   int64
}

func (h *OrderHandler) resolveCompany(c *gin.Context, userID int64, role string) (*companyAttribution, error) {
	ctx := c.Request.Context()

	switch role {
	case models.RoleCompanyAdmin:
		var company models.Company
		err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &companyAttribution{companyID: company.ID, adminUserID: company.UserID}, nil

	case models.RoleCompanyChild:
		var child models.ChildAccount
		err := h.db.WithContext(ctx).Preload("Company").Where("user_id = ?", userID).First(&child).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		attribution := &companyAttribution{companyID: child.CompanyID, placedByChild: true}
		if child.Company != nil {
			attribution.adminUserID = child.Company.UserID
		}
		return attribution, nil
	}

	return nil, nil
}

// Checkout places an order. Unit prices are always re-derived server
// side through the pricing engine, so a stale client can never buy at
// a price its account is not entitled to. Company-linked orders get a
// cache ledger row and child-placed orders notify the company admin.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("items with product_id and quantity are required"))
		return
	}

	userID, _ := middleware.GetAuthUserID(c)
	role, _ := middleware.GetAuthRole(c)
	ctx := c.Request.Context()

	pct := ""
	tier, err := h.resolver.ResolveForUser(ctx, userID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed"))
		return
	}
	if tier != nil {
		pct = tier.DiscountPercentage
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		var product models.Product
		err := h.db.WithContext(ctx).Where("is_active = ?", true).First(&product, item.ProductID).Error
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Product not found"))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed"))
			return
		}

		quote, err := pricing.ComputeQuote(product.RegularPrice, product.SalePrice, pct)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed"))
			return
		}

		unit, err := decimal.NewFromString(quote.FinalPrice)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed"))
			return
		}
		lineTotal := unit.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(lineTotal)

		items = append(items, models.OrderItem{
			ProductID:     product.ID,
			Quantity:      item.Quantity,
			UnitPrice:     quote.FinalPrice,
			OriginalPrice: quote.OriginalPrice,
			LineTotal:     lineTotal.StringFixed(2),
		})
	}

	attribution, err := h.resolveCompany(c, userID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed"))
		return
	}

	order := models.Order{
		UserID: userID,
		Status: models.OrderStatusProcessing,
		Total:  total.StringFixed(2),
	}
	if attribution != nil {
		order.CompanyID = &attribution.companyID
		order.PlacedByChild = attribution.placedByChild
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		if attribution != nil {
			ledger := models.CompanyOrder{
				OrderID:    order.ID,
				CompanyID:  attribution.companyID,
				UserID:     userID,
				OrderTotal: order.Total,
				OrderDate:  order.CreatedAt,
			}
			return tx.Create(&ledger).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed"))
		return
	}

	if attribution != nil && attribution.placedByChild && attribution.adminUserID != 0 {
		var admin models.User
		if err := h.db.WithContext(ctx).First(&admin, attribution.adminUserID).Error; err == nil {
			childEmail, _ := middleware.GetAuthEmail(c)
			h.mailer.SendChildOrderNotice(admin.Email, childEmail, order.ID, order.Total)
		}
	}

	middleware.GetLogger(c).Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Bool("placed_by_child", order.PlacedByChild))

	order.OrderItems = items
	c.JSON(http.StatusCreated, utils.SuccessResponse("Order placed", order))
}

// companyUserIDs returns every user attached to a company: the owning
// admin plus all child accounts.
func (h *OrderHandler) companyUserIDs(c *gin.Context, companyID int64) ([]int64, error) {
	ctx := c.Request.Context()

	var company models.Company
	if err := h.db.WithContext(ctx).First(&company, companyID).Error; err != nil {
		return nil, err
	}

	userIDs := []int64{company.UserID}
	var childIDs []int64
	if err := h.db.WithContext(ctx).Model(&models.ChildAccount{}).
		Where("company_id = ?", companyID).
		Pluck("user_id", &childIDs).Error; err != nil {
		return nil, err
	}
	return append(userIDs, childIDs...), nil
}

// ListOrders is role-aware: customers and children see their own
// orders, company admins additionally see their children's, the site
// admin sees everything.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, _ := middleware.GetAuthUserID(c)
	role, _ := middleware.GetAuthRole(c)
	ctx := c.Request.Context()

	tx := h.db.WithContext(ctx).Model(&models.Order{}).Preload("OrderItems")

	switch role {
	case models.RoleSiteAdmin:
		// no filter
	case models.RoleCompanyAdmin:
		var company models.Company
		if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error; err == nil {
			userIDs, err := h.companyUserIDs(c, company.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list orders"))
				return
			}
			tx = tx.Where("user_id IN ?", userIDs)
		} else {
			tx = tx.Where("user_id = ?", userID)
		}
	default:
		tx = tx.Where("user_id = ?", userID)
	}

	var orderRows []models.Order
	if err := tx.Order("created_at desc").Limit(100).Find(&orderRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list orders"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Orders retrieved", orderRows))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order ID"))
		return
	}

	userID, _ := middleware.GetAuthUserID(c)
	role, _ := middleware.GetAuthRole(c)
	ctx := c.Request.Context()

	var order models.Order
	if err := h.db.WithContext(ctx).Preload("OrderItems").Preload("OrderItems.Product").First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found"))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load order"))
		}
		return
	}

	if !h.canViewOrder(c, order, userID, role) {
		c.JSON(http.StatusForbidden, utils.ErrorResponse("Permission denied."))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Order retrieved", order))
}

// canViewOrder implements the visibility grant: owners always, site
// admins always, and company admins for any order placed by a member
// of their company.
func (h *OrderHandler) canViewOrder(c *gin.Context, order models.Order, userID int64, role string) bool {
	if order.UserID == userID || role == models.RoleSiteAdmin {
		return true
	}
	if role != models.RoleCompanyAdmin {
		return false
	}

	var company models.Company
	if err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&company).Error; err != nil {
		return false
	}
	if order.CompanyID != nil && *order.CompanyID == company.ID {
		return true
	}

	var count int64
	h.db.WithContext(c.Request.Context()).Model(&models.ChildAccount{}).
		Where("company_id = ? AND user_id = ?", company.ID, order.UserID).
		Count(&count)
	return count > 0
}

// UpdateOrderStatus lets the back office move an order through its
// lifecycle; the ledger row's total is untouched since totals never
// change after checkout.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order ID"))
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("status is required"))
		return
	}

	valid := map[string]bool{
		models.OrderStatusPending:    true,
		models.OrderStatusProcessing: true,
		models.OrderStatusOnHold:     true,
		models.OrderStatusCompleted:  true,
		models.OrderStatusCancelled:  true,
		models.OrderStatusRefunded:   true,
		models.OrderStatusFailed:     true,
	}
	if !valid[req.Status] {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Unknown order status"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", req.Status)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update order"))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Order status updated", nil))
}
