package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/gate"
	"trentora-system/internal/logger"
)

const (
	PRICING_CACHE_PREFIX   = "pricing:"
	COMPANY_TIER_CACHE_KEY = "pricing:company-tier:"
	CACHE_TTL_SHORT        = 5 * time.Minute
	CACHE_TTL_MEDIUM       = 30 * time.Minute
)

// TierResolver finds the discount tier that applies to a user, if any.
// Company tiers are cached in redis; every mutation of tiers or tier
// assignments must invalidate through InvalidateCompanyTierCache.
type TierResolver struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewTierResolver(db *gorm.DB, redisClient *redis.Client) *TierResolver {
	return &TierResolver{db: db, redis: redisClient}
}

// ResolveForUser walks the resolution order: company admins use their
// own company row; children use their child row, short-circuiting to
// no discount when the child or the parent company is suspended;
// everyone else gets no discount.
func (r *TierResolver) ResolveForUser(ctx context.Context, userID int64, role string) (*models.DiscountTier, error) {
	log := logger.Get()

	switch role {
	case models.RoleCompanyAdmin:
		var company models.Company
		err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		log.Debug("Tier resolution: company admin",
			zap.Int64("user_id", userID),
			zap.Int64("company_id", company.ID))
		return r.CompanyTier(ctx, company.ID)

	case models.RoleCompanyChild:
		var child models.ChildAccount
		err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&child).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		var company models.Company
		if err := r.db.WithContext(ctx).First(&company, child.CompanyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil
			}
			return nil, err
		}

		if !gate.EligibleForDiscount(child.Status, company.Status) {
			log.Debug("Tier resolution: child not eligible",
				zap.Int64("user_id", userID),
				zap.String("child_status", child.Status),
				zap.String("company_status", company.Status))
			return nil, nil
		}
		return r.CompanyTier(ctx, company.ID)
	}

	return nil, nil
}

// CompanyTier returns the tier assigned to a company, redis-cached.
func (r *TierResolver) CompanyTier(ctx context.Context, companyID int64) (*models.DiscountTier, error) {
	cacheKey := fmt.Sprintf("%s%d", COMPANY_TIER_CACHE_KEY, companyID)

	if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
		var tier models.DiscountTier
		if jsonErr := json.Unmarshal([]byte(cached), &tier); jsonErr == nil {
			if tier.ID == 0 {
				return nil, nil
			}
			return &tier, nil
		}
	}

	var company models.Company
	err := r.db.WithContext(ctx).First(&company, companyID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tier *models.DiscountTier
	if company.TierID != nil {
		var t models.DiscountTier
		err := r.db.WithContext(ctx).First(&t, *company.TierID).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		if err == nil {
			tier = &t
		}
	}

	// Cache the miss too: an empty tier marks "no discount".
	toCache := models.DiscountTier{}
	if tier != nil {
		toCache = *tier
	}
	if payload, err := json.Marshal(toCache); err == nil {
		_ = r.redis.Set(ctx, cacheKey, payload, CACHE_TTL_MEDIUM).Err()
	}

	return tier, nil
}

// InvalidateCompanyTierCache drops cached tiers for the given
// companies, or for every company referencing tierID when companyIDs
// is empty.
func (r *TierResolver) InvalidateCompanyTierCache(ctx context.Context, companyIDs ...int64) {
	for _, id := range companyIDs {
		cacheKey := fmt.Sprintf("%s%d", COMPANY_TIER_CACHE_KEY, id)
		_ = r.redis.Del(ctx, cacheKey).Err()
	}
}

// InvalidateTierCaches drops the cache of every company assigned the
// given tier. Called on tier update and delete.
func (r *TierResolver) InvalidateTierCaches(ctx context.Context, tierID int64) {
	var companyIDs []int64
	if err := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("tier_id = ?", tierID).
		Pluck("id", &companyIDs).Error; err != nil {
		logger.Get().Warn("Failed to enumerate companies for tier cache invalidation",
			zap.Int64("tier_id", tierID), zap.Error(err))
		return
	}
	r.InvalidateCompanyTierCache(ctx, companyIDs...)
}
