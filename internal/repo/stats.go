// Package repo implements the durable store of the relay, backed by GORM.
// This file provides small aggregate queries used by the operator stats
// endpoint. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// MappingStats returns the number of mapping rows visible to botID and the
// newest created_at among them.
//
// Return values:
//   - count:  rows visible to botID (see visibleTo for the matching rule)
//   - newest: pointer to the greatest created_at, or nil if no rows
//   - err:    database error, if any
func MappingStats(ctx context.Context, db *gorm.DB, botID *int64) (count int64, newest *time.Time, err error) {
	base := visibleTo(db.WithContext(ctx).Model(&domain.RecipientMapping{}), botID)

	if err = base.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = base.Session(&gorm.Session{}).Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// ReachabilityStats counts reachable and unreachable recipients of botID.
func ReachabilityStats(ctx context.Context, db *gorm.DB, botID int64) (reachable, unreachable int64, err error) {
	base := db.WithContext(ctx).Model(&domain.BotUser{}).Where("bot_id = ?", botID)
	if err = base.Session(&gorm.Session{}).Where("can_send = ?", true).Count(&reachable).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).Where("can_send = ?", false).Count(&unreachable).Error; err != nil {
		return 0, 0, err
	}
	return reachable, unreachable, nil
}
