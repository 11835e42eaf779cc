package models

import "time"

// User roles. A user carries exactly one role; assigning a B2B role
// replaces the default customer role outright.
const (
	RoleSiteAdmin    = "site_admin"
	RoleCompanyAdmin = "company_admin"
	RoleCompanyChild = "company_child"
	RoleCustomer     = "customer"
)

// Company lifecycle: pending -> active | rejected; active <-> suspended.
const (
	CompanyStatusPending   = "pending"
	CompanyStatusActive    = "active"
	CompanyStatusSuspended = "suspended"
	CompanyStatusRejected  = "rejected"
)

// Admin and child sub-states, orthogonal to the company state.
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
)

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Firstname string
	Lastname  string
	Role      string `gorm:"type:varchar(32);index;not null;default:'customer'"`
	IsActive  bool   `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

type Company struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	UserID           int64  `gorm:"index;not null"`
	CompanyName      string `gorm:"type:varchar(255);not null"`
	Industry         string `gorm:"type:varchar(255)"`
	CompanyInfo      string `gorm:"type:text"`
	Status           string `gorm:"type:varchar(20);index;not null;default:'pending'"`
	TierID           *int64 `gorm:"index"`
	AdminStatus      string `gorm:"type:varchar(20);not null;default:'active'"`
	RegistrationDate time.Time `gorm:"autoCreateTime"`
	UpdatedAt        *time.Time `gorm:"autoUpdateTime"`

	Tier          *DiscountTier  `gorm:"foreignKey:TierID"`
	ChildAccounts []ChildAccount `gorm:"foreignKey:CompanyID"`
}

type ChildAccount struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      int64     `gorm:"index;not null"`
	CompanyID   int64     `gorm:"index;not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedDate time.Time `gorm:"autoCreateTime"`

	User    *User    `gorm:"foreignKey:UserID"`
	Company *Company `gorm:"foreignKey:CompanyID"`
}

type DiscountTier struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement"`
	TierName           string    `gorm:"type:varchar(255);not null"`
	DiscountPercentage string    `gorm:"type:decimal(5,2);not null;default:0"`
	CreatedDate        time.Time `gorm:"autoCreateTime"`
}
