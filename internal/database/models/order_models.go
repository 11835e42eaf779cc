package models

import "time"

// Native order store statuses. The company order table is a derived
// cache over these rows; the backfill only counts paid-ish statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusOnHold     = "on_hold"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
	OrderStatusFailed     = "failed"
)

type Order struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	UserID        int64  `gorm:"index;not null"`
	Status        string `gorm:"type:varchar(20);index;not null;default:'processing'"`
	Total         string `gorm:"type:decimal(10,2);not null"`
	CompanyID     *int64 `gorm:"index"`
	PlacedByChild bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	OrderItems []OrderItem `gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	OrderID       int64  `gorm:"index;not null"`
	ProductID     int64  `gorm:"not null"`
	Quantity      int32  `gorm:"not null"`
	UnitPrice     string `gorm:"type:decimal(10,2);not null"`
	OriginalPrice string `gorm:"type:decimal(10,2);not null"`
	LineTotal     string `gorm:"type:decimal(10,2);not null"`
	CreatedAt     time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// CompanyOrder is the denormalized per-company order ledger. Rows are
// inserted at checkout and reconciled by the backfill; order_id is the
// idempotency key.
type CompanyOrder struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	OrderID    int64     `gorm:"uniqueIndex;not null"`
	CompanyID  int64     `gorm:"index;not null"`
	UserID     int64     `gorm:"index;not null"`
	OrderTotal string    `gorm:"type:decimal(10,2);not null;default:0"`
	OrderDate  time.Time `gorm:"index;not null"`
}
