package models

import "time"

type Product struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	SKU          string  `gorm:"type:varchar(32);uniqueIndex;not null"`
	ProductName  string  `gorm:"type:varchar(128);not null"`
	Category     string  `gorm:"type:varchar(64);index"`
	RegularPrice string  `gorm:"type:decimal(10,2);not null"`
	SalePrice    *string `gorm:"type:decimal(10,2)"`
	IsActive     bool    `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OnSale reports whether the product currently carries a sale price.
// A sale price equal to or above the regular price is ignored by the
// pricing engine, but the flag only checks presence.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && *p.SalePrice != ""
}

// GuestPricingSettings is a single-row table controlling price
// visibility for anonymous visitors.
type GuestPricingSettings struct {
	ID                 int64       `gorm:"primaryKey"`
	Enabled            bool        `gorm:"not null;default:true"`
	LoginMessage       string      `gorm:"type:text"`
	ExcludedSKUs       StringArray `gorm:"type:text"`
	ExcludedCategories StringArray `gorm:"type:text"`
	UpdatedAt          time.Time
}
