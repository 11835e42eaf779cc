package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"

	orders "trentora-system/internal/services/orders/handler"
)

// ownCompany loads the company owned by the authenticated admin.
func (h *AccountsHandler) ownCompany(c *gin.Context) (*models.Company, bool) {
	userID, _ := middleware.GetAuthUserID(c)

	var company models.Company
	err := h.db.WithContext(c.Request.Context()).Preload("Tier").
		Where("user_id = ?", userID).
		First(&company).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Company not found."))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load company"))
		}
		return nil, false
	}
	return &company, true
}

// GetCompanyDashboard serves the company admin's landing view: the
// profile, current tier and spend statistics. The backfill runs first
// so a freshly migrated store still shows historical spend.
func (h *AccountsHandler) GetCompanyDashboard(c *gin.Context) {
	company, ok := h.ownCompany(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.orders.RefreshCompanyOrders(ctx, false); err != nil {
		middleware.GetLogger(c).Warn("Ledger backfill failed", zap.Error(err))
	}

	from, to, err := orders.DateRangeFromQuery(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Dates must be in YYYY-MM-DD format"))
		return
	}

	stats, err := h.orders.CompanyOrderStats(ctx, company.ID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load dashboard"))
		return
	}

	children, err := h.childSummaries(c, company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load dashboard"))
		return
	}

	payload := gin.H{
		"company":  h.companySummary(c, *company),
		"children": children,
		"stats":    stats,
	}
	if company.Tier != nil {
		payload["discount_percentage"] = company.Tier.DiscountPercentage
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Dashboard retrieved", payload))
}

func (h *AccountsHandler) GetCompanyProfile(c *gin.Context) {
	company, ok := h.ownCompany(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Company retrieved", gin.H{
		"company":      h.companySummary(c, *company),
		"company_info": company.CompanyInfo,
	}))
}

type UpdateCompanyRequest struct {
	CompanyName *string `json:"company_name"`
	Industry    *string `json:"industry"`
	CompanyInfo *string `json:"company_info"`
}

// UpdateCompanyProfile edits the descriptive fields. Status, tier and
// admin state are back-office only and never touched here.
func (h *AccountsHandler) UpdateCompanyProfile(c *gin.Context) {
	company, ok := h.ownCompany(c)
	if !ok {
		return
	}

	var req UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request body"))
		return
	}

	updates := map[string]interface{}{}
	if req.CompanyName != nil {
		if *req.CompanyName == "" {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("company_name cannot be empty"))
			return
		}
		updates["company_name"] = *req.CompanyName
	}
	if req.Industry != nil {
		updates["industry"] = *req.Industry
	}
	if req.CompanyInfo != nil {
		updates["company_info"] = *req.CompanyInfo
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Nothing to update"))
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(company).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Update failed"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Company updated", company))
}

type CreateChildRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// CreateChild provisions a sub-account under the admin's company. A
// random password is generated server side and mailed to the child;
// it is never returned in the response.
func (h *AccountsHandler) CreateChild(c *gin.Context) {
	company, ok := h.ownCompany(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if company.Status != models.CompanyStatusActive {
		c.JSON(http.StatusForbidden, utils.ErrorResponse("Your company must be active to add sub-accounts."))
		return
	}

	var req CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("A valid email is required"))
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create sub-account"))
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, utils.ErrorResponse("An account with this email already exists"))
		return
	}

	password, err := utils.GeneratePassword(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create sub-account"))
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create sub-account"))
		return
	}

	user := models.User{
		Email:     req.Email,
		Password:  string(hashed),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      models.RoleCompanyChild,
		IsActive:  true,
	}
	child := models.ChildAccount{
		CompanyID: company.ID,
		Status:    models.AccountStatusActive,
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		child.UserID = user.ID
		return tx.Create(&child).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create sub-account"))
		return
	}

	h.mailer.SendChildWelcome(user.Email, company.CompanyName, password)

	middleware.GetLogger(c).Info("Child account created",
		zap.Int64("company_id", company.ID),
		zap.Int64("child_user_id", user.ID))

	c.JSON(http.StatusCreated, utils.SuccessResponse("Sub-account created", gin.H{
		"child_id": child.ID,
		"user_id":  user.ID,
		"email":    user.Email,
		"status":   child.Status,
	}))
}

func (h *AccountsHandler) ListChildren(c *gin.Context) {
	company, ok := h.ownCompany(c)
	if !ok {
		return
	}

	children, err := h.childSummaries(c, company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list sub-accounts"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Sub-accounts retrieved", children))
}

// ownChildStatus changes a child's status after verifying the child
// belongs to the caller's company.
func (h *AccountsHandler) ownChildStatus(c *gin.Context, status string) {
	company, ok := h.ownCompany(c)
	if !ok {
		return
	}

	childID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid child ID"))
		return
	}
	h.setChildStatus(c, childID, &company.ID, status)
}

func (h *AccountsHandler) SuspendChild(c *gin.Context) {
	h.ownChildStatus(c, models.AccountStatusSuspended)
}

func (h *AccountsHandler) ActivateChild(c *gin.Context) {
	h.ownChildStatus(c, models.AccountStatusActive)
}
