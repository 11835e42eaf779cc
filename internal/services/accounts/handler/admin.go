package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"
)

const (
	ADMIN_DASHBOARD_CACHE_KEY = "accounts:admin-dashboard"
	ADMIN_DASHBOARD_CACHE_TTL = 5 * time.Minute
)

type AdminDashboard struct {
	ActiveCompanies  int64  `json:"active_companies"`
	PendingCompanies int64  `json:"pending_companies"`
	ActiveChildren   int64  `json:"active_children"`
	TotalOrders      int64  `json:"total_orders"`
	TotalRevenue     string `json:"total_revenue"`
}

func (h *AccountsHandler) invalidateDashboardCache(c *gin.Context) {
	if err := h.redis.Del(c.Request.Context(), ADMIN_DASHBOARD_CACHE_KEY).Err(); err != nil && err != redis.Nil {
		middleware.GetLogger(c).Warn("Failed to invalidate dashboard cache", zap.Error(err))
	}
}

// GetAdminDashboard serves the back-office overview. The ledger
// backfill runs first so the revenue numbers include orders placed
// before the ledger existed.
func (h *AccountsHandler) GetAdminDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, err := h.redis.Get(ctx, ADMIN_DASHBOARD_CACHE_KEY).Result(); err == nil {
		var dashboard AdminDashboard
		if json.Unmarshal([]byte(cached), &dashboard) == nil {
			c.JSON(http.StatusOK, utils.SuccessResponse("Dashboard retrieved", dashboard))
			return
		}
	}

	if _, err := h.orders.RefreshCompanyOrders(ctx, false); err != nil {
		middleware.GetLogger(c).Warn("Ledger backfill failed", zap.Error(err))
	}

	var dashboard AdminDashboard
	queries := []error{
		h.db.WithContext(ctx).Model(&models.Company{}).
			Where("status = ?", models.CompanyStatusActive).
			Count(&dashboard.ActiveCompanies).Error,
		h.db.WithContext(ctx).Model(&models.Company{}).
			Where("status = ?", models.CompanyStatusPending).
			Count(&dashboard.PendingCompanies).Error,
		h.db.WithContext(ctx).Model(&models.ChildAccount{}).
			Where("status = ?", models.AccountStatusActive).
			Count(&dashboard.ActiveChildren).Error,
		h.db.WithContext(ctx).Model(&models.CompanyOrder{}).
			Count(&dashboard.TotalOrders).Error,
		h.db.WithContext(ctx).Model(&models.CompanyOrder{}).
			Select("COALESCE(SUM(order_total), 0)::text").
			Scan(&dashboard.TotalRevenue).Error,
	}
	for _, err := range queries {
		if err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load dashboard"))
			return
		}
	}

	if payload, err := json.Marshal(dashboard); err == nil {
		h.redis.Set(ctx, ADMIN_DASHBOARD_CACHE_KEY, payload, ADMIN_DASHBOARD_CACHE_TTL)
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Dashboard retrieved", dashboard))
}

type CompanySummary struct {
	ID               int64     `json:"id"`
	CompanyName      string    `json:"company_name"`
	Industry         string    `json:"industry"`
	Status           string    `json:"status"`
	AdminStatus      string    `json:"admin_status"`
	AdminEmail       string    `json:"admin_email"`
	TierID           *int64    `json:"tier_id"`
	TierName         string    `json:"tier_name,omitempty"`
	ChildCount       int64     `json:"child_count"`
	TotalSpent       string    `json:"total_spent"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (h *AccountsHandler) companySummary(c *gin.Context, company models.Company) CompanySummary {
	ctx := c.Request.Context()

	summary := CompanySummary{
		ID:               company.ID,
		CompanyName:      company.CompanyName,
		Industry:         company.Industry,
		Status:           company.Status,
		AdminStatus:      company.AdminStatus,
		TierID:           company.TierID,
		TotalSpent:       "0",
		RegistrationDate: company.RegistrationDate,
	}
	if company.Tier != nil {
		summary.TierName = company.Tier.TierName
	}

	var admin models.User
	if err := h.db.WithContext(ctx).First(&admin, company.UserID).Error; err == nil {
		summary.AdminEmail = admin.Email
	}

	h.db.WithContext(ctx).Model(&models.ChildAccount{}).
		Where("company_id = ?", company.ID).
		Count(&summary.ChildCount)

	h.db.WithContext(ctx).Model(&models.CompanyOrder{}).
		Where("company_id = ?", company.ID).
		Select("COALESCE(SUM(order_total), 0)::text").
		Scan(&summary.TotalSpent)

	return summary
}

// ListPendingCompanies returns the approval queue, oldest first.
func (h *AccountsHandler) ListPendingCompanies(c *gin.Context) {
	var companies []models.Company
	err := h.db.WithContext(c.Request.Context()).
		Where("status = ?", models.CompanyStatusPending).
		Order("registration_date asc").
		Find(&companies).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list companies"))
		return
	}

	summaries := make([]CompanySummary, 0, len(companies))
	for _, company := range companies {
		summaries = append(summaries, h.companySummary(c, company))
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Pending companies retrieved", summaries))
}

// ListCompanies supports search across name and industry, a status
// filter, sorting and pagination for the back-office table.
func (h *AccountsHandler) ListCompanies(c *gin.Context) {
	ctx := c.Request.Context()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	tx := h.db.WithContext(ctx).Model(&models.Company{}).Preload("Tier")

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("company_name ILIKE ? OR industry ILIKE ?", pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		tx = tx.Where("status = ?", status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list companies"))
		return
	}

	switch c.DefaultQuery("sort", "registration_date") {
	case "name":
		tx = tx.Order("company_name asc")
	case "total_spent":
		tx = tx.Order(`(SELECT COALESCE(SUM(order_total), 0)
			FROM company_orders
			WHERE company_orders.company_id = companies.id) DESC`)
	default:
		tx = tx.Order("registration_date desc")
	}

	var companies []models.Company
	if err := tx.Offset((page - 1) * pageSize).Limit(pageSize).Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list companies"))
		return
	}

	summaries := make([]CompanySummary, 0, len(companies))
	for _, company := range companies {
		summaries = append(summaries, h.companySummary(c, company))
	}

	meta := utils.PageMeta{Page: page, PageSize: pageSize, Total: total}
	c.JSON(http.StatusOK, utils.SuccessWithMetaResponse("Companies retrieved", summaries, meta))
}

type ChildSummary struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	Firstname   string    `json:"firstname"`
	Lastname    string    `json:"lastname"`
	Status      string    `json:"status"`
	TotalSpent  string    `json:"total_spent"`
	CreatedDate time.Time `json:"created_date"`
}

func (h *AccountsHandler) childSummaries(c *gin.Context, companyID int64) ([]ChildSummary, error) {
	ctx := c.Request.Context()

	var children []models.ChildAccount
	err := h.db.WithContext(ctx).Preload("User").
		Where("company_id = ?", companyID).
		Order("created_date asc").
		Find(&children).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ChildSummary, 0, len(children))
	for _, child := range children {
		summary := ChildSummary{
			ID:          child.ID,
			UserID:      child.UserID,
			Status:      child.Status,
			TotalSpent:  "0",
			CreatedDate: child.CreatedDate,
		}
		if child.User != nil {
			summary.Email = child.User.Email
			summary.Firstname = child.User.Firstname
			summary.Lastname = child.User.Lastname
		}
		h.db.WithContext(ctx).Model(&models.CompanyOrder{}).
			Where("user_id = ?", child.UserID).
			Select("COALESCE(SUM(order_total), 0)::text").
			Scan(&summary.TotalSpent)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetCompanyDetail returns one company with its admin, children and
// order statistics.
func (h *AccountsHandler) GetCompanyDetail(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid company ID"))
		return
	}
	ctx := c.Request.Context()

	var company models.Company
	if err := h.db.WithContext(ctx).Preload("Tier").First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Company not found."))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load company"))
		}
		return
	}

	children, err := h.childSummaries(c, company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load company"))
		return
	}

	stats, err := h.orders.CompanyOrderStats(ctx, company.ID, nil, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load company"))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Company retrieved", gin.H{
		"company":      h.companySummary(c, company),
		"company_info": company.CompanyInfo,
		"children":     children,
		"stats":        stats,
	}))
}

func (h *AccountsHandler) loadCompany(c *gin.Context) (*models.Company, bool) {
	companyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid company ID"))
		return nil, false
	}

	var company models.Company
	if err := h.db.WithContext(c.Request.Context()).First(&company, companyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Company not found."))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load company"))
		}
		return nil, false
	}
	return &company, true
}

// ApproveCompany moves a pending company to active. Approving an
// already active company is a no-op success so double-clicks in the
// back office do not error.
func (h *AccountsHandler) ApproveCompany(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if company.Status == models.CompanyStatusActive {
		c.JSON(http.StatusOK, utils.SuccessResponse("Company is already active", company))
		return
	}
	if company.Status != models.CompanyStatusPending {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Only pending companies can be approved"))
		return
	}

	if err := h.db.WithContext(ctx).Model(company).Update("status", models.CompanyStatusActive).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Approval failed"))
		return
	}

	var admin models.User
	if err := h.db.WithContext(ctx).First(&admin, company.UserID).Error; err == nil {
		h.mailer.SendApprovalNotice(admin.Email, company.CompanyName)
	}

	h.invalidateDashboardCache(c)
	middleware.GetLogger(c).Info("Company approved",
		zap.Int64("company_id", company.ID),
		zap.String("company_name", company.CompanyName))

	c.JSON(http.StatusOK, utils.SuccessResponse("Company approved", company))
}

// RejectCompany marks a pending company rejected; the applicant is
// told why.
func (h *AccountsHandler) RejectCompany(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)

	if company.Status != models.CompanyStatusPending {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Only pending companies can be rejected"))
		return
	}

	if err := h.db.WithContext(ctx).Model(company).Update("status", models.CompanyStatusRejected).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Rejection failed"))
		return
	}

	var admin models.User
	if err := h.db.WithContext(ctx).First(&admin, company.UserID).Error; err == nil {
		h.mailer.SendRejectionNotice(admin.Email, company.CompanyName, req.Reason)
	}

	h.invalidateDashboardCache(c)
	middleware.GetLogger(c).Info("Company rejected", zap.Int64("company_id", company.ID))

	c.JSON(http.StatusOK, utils.SuccessResponse("Company rejected", company))
}

// setCompanyStatus flips a company between active and suspended and
// cascades the same status to every child account in one transaction.
func (h *AccountsHandler) setCompanyStatus(c *gin.Context, status string) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if company.Status == status {
		c.JSON(http.StatusOK, utils.SuccessResponse("Company status unchanged", company))
		return
	}
	if company.Status != models.CompanyStatusActive && company.Status != models.CompanyStatusSuspended {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Only active or suspended companies can change status"))
		return
	}

	childStatus := models.AccountStatusActive
	if status == models.CompanyStatusSuspended {
		childStatus = models.AccountStatusSuspended
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(company).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChildAccount{}).
			Where("company_id = ?", company.ID).
			Update("status", childStatus).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Status update failed"))
		return
	}

	h.invalidateDashboardCache(c)
	middleware.GetLogger(c).Info("Company status changed",
		zap.Int64("company_id", company.ID),
		zap.String("status", status))

	c.JSON(http.StatusOK, utils.SuccessResponse("Company status updated", gin.H{
		"company_id": company.ID,
		"status":     status,
	}))
}

func (h *AccountsHandler) SuspendCompany(c *gin.Context) {
	h.setCompanyStatus(c, models.CompanyStatusSuspended)
}

func (h *AccountsHandler) ActivateCompany(c *gin.Context) {
	h.setCompanyStatus(c, models.CompanyStatusActive)
}

// SetAdminStatus suspends or reactivates only the company admin.
// Children keep trading; the admin alone is locked out.
func (h *AccountsHandler) SetAdminStatus(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil ||
		(req.Status != models.AccountStatusActive && req.Status != models.AccountStatusSuspended) {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("status must be active or suspended"))
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(company).Update("admin_status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Status update failed"))
		return
	}

	middleware.GetLogger(c).Info("Admin status changed",
		zap.Int64("company_id", company.ID),
		zap.String("admin_status", req.Status))

	c.JSON(http.StatusOK, utils.SuccessResponse("Admin status updated", gin.H{
		"company_id":   company.ID,
		"admin_status": req.Status,
	}))
}

func (h *AccountsHandler) setChildStatus(c *gin.Context, childID int64, companyID *int64, status string) {
	ctx := c.Request.Context()

	tx := h.db.WithContext(ctx).Model(&models.ChildAccount{}).Where("id = ?", childID)
	if companyID != nil {
		tx = tx.Where("company_id = ?", *companyID)
	}

	result := tx.Update("status", status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Status update failed"))
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Child account not found"))
		return
	}

	middleware.GetLogger(c).Info("Child status changed",
		zap.Int64("child_id", childID),
		zap.String("status", status))

	c.JSON(http.StatusOK, utils.SuccessResponse("Child status updated", gin.H{
		"child_id": childID,
		"status":   status,
	}))
}

func (h *AccountsHandler) adminSetChildStatus(c *gin.Context, status string) {
	childID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid child ID"))
		return
	}
	h.setChildStatus(c, childID, nil, status)
}

func (h *AccountsHandler) SuspendChildAdmin(c *gin.Context) {
	h.adminSetChildStatus(c, models.AccountStatusSuspended)
}

func (h *AccountsHandler) ActivateChildAdmin(c *gin.Context) {
	h.adminSetChildStatus(c, models.AccountStatusActive)
}

// ClearCompanyData wipes every B2B table. The confirm flag is
// mandatory; this exists for staging resets, not day-to-day use.
func (h *AccountsHandler) ClearCompanyData(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("confirm must be true to clear company data"))
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM company_orders").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM child_accounts").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM companies").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM discount_tiers").Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to clear company data"))
		return
	}

	h.invalidateDashboardCache(c)
	middleware.GetLogger(c).Warn("All company data cleared")

	c.JSON(http.StatusOK, utils.SuccessResponse("Company data cleared", nil))
}
