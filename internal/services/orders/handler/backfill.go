package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trentora-system/internal/database/models"
	"trentora-system/internal/logger"
)

const (
	BACKFILL_MARKER_KEY = "orders:backfill-last-run"
	BACKFILL_INTERVAL   = 24 * time.Hour
)

// backfillStatuses are the order states that count toward company
// spend. Cancelled, refunded and failed orders stay out of the ledger.
var backfillStatuses = []string{
	models.OrderStatusCompleted,
	models.OrderStatusProcessing,
	models.OrderStatusOnHold,
}

// RefreshCompanyOrders reconciles the company order ledger against the
// native order store: every order placed by a user attached to a
// company gets a ledger row if one is missing. Idempotent per
// order_id. Throttled to once per interval via a redis marker unless
// the ledger is empty or force is set.
func (h *OrderHandler) RefreshCompanyOrders(ctx context.Context, force bool) (int64, error) {
	log := logger.Get()

	if !force {
		var ledgerCount int64
		if err := h.db.WithContext(ctx).Model(&models.CompanyOrder{}).Count(&ledgerCount).Error; err != nil {
			return 0, err
		}
		if ledgerCount > 0 {
			if exists, err := h.redis.Exists(ctx, BACKFILL_MARKER_KEY).Result(); err == nil && exists > 0 {
				log.Debug("Order backfill skipped, ran recently")
				return 0, nil
			}
		}
	}

	var companies []models.Company
	if err := h.db.WithContext(ctx).Find(&companies).Error; err != nil {
		return 0, err
	}

	var inserted int64
	for _, company := range companies {
		userIDs := []int64{company.UserID}
		var childIDs []int64
		if err := h.db.WithContext(ctx).Model(&models.ChildAccount{}).
			Where("company_id = ?", company.ID).
			Pluck("user_id", &childIDs).Error; err != nil {
			return inserted, err
		}
		userIDs = append(userIDs, childIDs...)

		var orderRows []models.Order
		if err := h.db.WithContext(ctx).
			Where("user_id IN ?", userIDs).
			Where("status IN ?", backfillStatuses).
			Find(&orderRows).Error; err != nil {
			return inserted, err
		}

		for _, order := range orderRows {
			var exists int64
			if err := h.db.WithContext(ctx).Model(&models.CompanyOrder{}).
				Where("order_id = ?", order.ID).
				Count(&exists).Error; err != nil {
				return inserted, err
			}
			if exists > 0 {
				continue
			}

			ledger := models.CompanyOrder{
				OrderID:    order.ID,
				CompanyID:  company.ID,
				UserID:     order.UserID,
				OrderTotal: order.Total,
				OrderDate:  order.CreatedAt,
			}
			if err := h.db.WithContext(ctx).Create(&ledger).Error; err != nil {
				return inserted, err
			}
			inserted++
		}
	}

	_ = h.redis.Set(ctx, BACKFILL_MARKER_KEY, time.Now().Unix(), BACKFILL_INTERVAL).Err()

	if inserted > 0 {
		log.Info("Order backfill completed", zap.Int64("orders_added", inserted))
	}
	return inserted, nil
}
