package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"trentora-system/config"
	"trentora-system/internal/database/models"
	"trentora-system/internal/gate"
	"trentora-system/internal/mailer"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"

	orders "trentora-system/internal/services/orders/handler"
	pricing "trentora-system/internal/services/pricing/handler"
)

type AccountsHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	mailer   *mailer.Mailer
	gate     *gate.Resolver
	resolver *pricing.TierResolver
	orders   *orders.OrderHandler
	authCfg  config.AuthConfig
	storeCfg config.StoreConfig
}

func NewAccountsHandler(
	db *gorm.DB,
	redisClient *redis.Client,
	m *mailer.Mailer,
	resolver *pricing.TierResolver,
	orderHandler *orders.OrderHandler,
	authCfg config.AuthConfig,
	storeCfg config.StoreConfig,
) *AccountsHandler {
	return &AccountsHandler{
		db:       db,
		redis:    redisClient,
		mailer:   m,
		gate:     gate.NewResolver(db),
		resolver: resolver,
		orders:   orderHandler,
		authCfg:  authCfg,
		storeCfg: storeCfg,
	}
}

type CompanyRegistration struct {
	CompanyName string `json:"company_name" binding:"required"`
	Industry    string `json:"industry"`
	CompanyInfo string `json:"company_info"`
}

type RegisterRequest struct {
	Email     string               `json:"email" binding:"required,email"`
	Password  string               `json:"password" binding:"required,min=8"`
	Firstname string               `json:"firstname"`
	Lastname  string               `json:"lastname"`
	Company   *CompanyRegistration `json:"company"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a customer account. When a company block is
// present the user becomes a company admin instead (never both roles)
// and a pending company row is inserted for back-office review.
func (h *AccountsHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("email and password (min 8 chars) are required"))
		return
	}

	ctx := c.Request.Context()

	var existing int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Registration failed"))
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, utils.ErrorResponse("An account with this email already exists"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Registration failed"))
		return
	}

	role := models.RoleCustomer
	if req.Company != nil {
		role = models.RoleCompanyAdmin
	}

	user := models.User{
		Email:     req.Email,
		Password:  string(hashed),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Role:      role,
		IsActive:  true,
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if req.Company != nil {
			status := models.CompanyStatusPending
			if !h.storeCfg.RequireApproval {
				status = models.CompanyStatusActive
			}
			company := models.Company{
				UserID:      user.ID,
				CompanyName: req.Company.CompanyName,
				Industry:    req.Company.Industry,
				CompanyInfo: req.Company.CompanyInfo,
				Status:      status,
				AdminStatus: models.AccountStatusActive,
			}
			return tx.Create(&company).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Registration failed"))
		return
	}

	if req.Company != nil {
		h.mailer.SendRegistrationNotice(h.storeCfg.NotificationEmail, req.Company.CompanyName, user.Email)
	}

	message := "Registration successful."
	if req.Company != nil && h.storeCfg.RequireApproval {
		message = "Registration successful. Your company account is pending approval."
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse(message, gin.H{"user_id": user.ID}))
}

// Login authenticates and then applies the status gate. A denied
// login responds 403 with the machine-readable code so clients can
// show the right message.
func (h *AccountsHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("email and password are required"))
		return
	}

	ctx := c.Request.Context()

	var user models.User
	err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid email or password"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Login failed"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid email or password"))
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, utils.CodedErrorResponse(gate.CodeAccountSuspended, "Your account has been deactivated."))
		return
	}

	denial, err := h.gate.Check(ctx, user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Login failed"))
		return
	}
	if denial != nil {
		middleware.GetLogger(c).Debug("Login denied by status gate",
			zap.Int64("user_id", user.ID),
			zap.String("code", denial.Code))
		c.JSON(http.StatusForbidden, utils.CodedErrorResponse(denial.Code, denial.Message))
		return
	}

	ttl := time.Duration(h.authCfg.TokenTTLHours) * time.Hour
	token, exp, err := utils.GenerateToken(user.ID, user.Email, user.Role, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Login failed"))
		return
	}

	now := time.Now()
	h.db.WithContext(ctx).Model(&user).Update("last_login", &now)

	c.JSON(http.StatusOK, utils.SuccessResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	}))
}

// Me reports the caller's identity plus company/child status.
func (h *AccountsHandler) Me(c *gin.Context) {
	userID, _ := middleware.GetAuthUserID(c)
	role, _ := middleware.GetAuthRole(c)

	ctx := c.Request.Context()

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to load account"))
		return
	}

	payload := gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"firstname": user.Firstname,
		"lastname":  user.Lastname,
		"role":      user.Role,
	}

	switch role {
	case models.RoleCompanyAdmin:
		var company models.Company
		if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error; err == nil {
			payload["company"] = gin.H{
				"id":           company.ID,
				"company_name": company.CompanyName,
				"status":       company.Status,
				"admin_status": company.AdminStatus,
			}
		}
	case models.RoleCompanyChild:
		var child models.ChildAccount
		if err := h.db.WithContext(ctx).Preload("Company").Where("user_id = ?", userID).First(&child).Error; err == nil {
			payload["child_account"] = gin.H{
				"id":         child.ID,
				"company_id": child.CompanyID,
				"status":     child.Status,
			}
			if child.Company != nil {
				payload["company"] = gin.H{
					"id":           child.Company.ID,
					"company_name": child.Company.CompanyName,
					"status":       child.Company.Status,
				}
			}
		}
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Account retrieved", payload))
}
