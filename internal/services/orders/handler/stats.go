package handler

import (
	"context"
	"time"

	"gorm.io/gorm"

	"trentora-system/internal/database/models"
)

type StatsSummary struct {
	TotalOrders     int64  `json:"total_orders"`
	TotalSpent      string `json:"total_spent"`
	AverageOrder    string `json:"average_order"`
	LargestOrder    string `json:"largest_order"`
	UniqueCustomers int64  `json:"unique_customers"`
}

type DailyOrders struct {
	OrderDay    string `json:"order_day"`
	OrdersCount int64  `json:"orders_count"`
	DailyTotal  string `json:"daily_total"`
}

type TopCustomer struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	OrdersCount int64  `json:"orders_count"`
	TotalSpent  string `json:"total_spent"`
}

type OrderStats struct {
	Summary      StatsSummary  `json:"summary"`
	DailyOrders  []DailyOrders `json:"daily_orders"`
	TopCustomers []TopCustomer `json:"top_customers"`
}

// CompanyOrderStats aggregates the company order ledger, optionally
// bounded by a date range. Numeric aggregates are cast to text so the
// decimal totals survive the round trip unmangled.
func (h *OrderHandler) CompanyOrderStats(ctx context.Context, companyID int64, from, to *time.Time) (OrderStats, error) {
	var stats OrderStats

	scoped := func() *gorm.DB {
		tx := h.db.WithContext(ctx).Model(&models.CompanyOrder{}).Where("company_id = ?", companyID)
		if from != nil {
			tx = tx.Where("order_date >= ?", *from)
		}
		if to != nil {
			tx = tx.Where("order_date <= ?", *to)
		}
		return tx
	}

	err := scoped().
		Select(`COUNT(*) as total_orders,
			COALESCE(SUM(order_total), 0)::text as total_spent,
			COALESCE(AVG(order_total), 0)::numeric(10,2)::text as average_order,
			COALESCE(MAX(order_total), 0)::text as largest_order,
			COUNT(DISTINCT user_id) as unique_customers`).
		Scan(&stats.Summary).Error
	if err != nil {
		return stats, err
	}

	err = scoped().
		Select(`DATE(order_date)::text as order_day,
			COUNT(*) as orders_count,
			COALESCE(SUM(order_total), 0)::text as daily_total`).
		Group("DATE(order_date)").
		Order("order_day asc").
		Scan(&stats.DailyOrders).Error
	if err != nil {
		return stats, err
	}

	err = scoped().
		Select(`company_orders.user_id,
			users.email,
			COUNT(*) as orders_count,
			COALESCE(SUM(company_orders.order_total), 0)::text as total_spent`).
		Joins("JOIN users ON users.id = company_orders.user_id").
		Group("company_orders.user_id, users.email").
		Order("SUM(company_orders.order_total) desc").
		Limit(5).
		Scan(&stats.TopCustomers).Error
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// DateRangeFromQuery parses optional start_date/end_date query params
// (YYYY-MM-DD). The end date is inclusive through end of day.
func DateRangeFromQuery(startDate, endDate string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return nil, nil, err
		}
		end := t.Add(24*time.Hour - time.Second)
		to = &end
	}
	return from, to, nil
}
