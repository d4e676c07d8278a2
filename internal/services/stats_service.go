package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/queue"
	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
)

// Stats is an operator snapshot of the engine.
type Stats struct {
	LiveMessages   int        `json:"live_messages"`
	QueueDepth     int        `json:"queue_depth"`
	MappingRows    int64      `json:"mapping_rows"`
	NewestMapping  *time.Time `json:"newest_mapping,omitempty"`
	Reachable      int64      `json:"reachable"`
	Unreachable    int64      `json:"unreachable"`
	RetentionHours float64    `json:"retention_hours"`
}

// StatsService reports engine counters.
type StatsService struct {
	DB       *gorm.DB
	Registry *registry.Registry
	Queue    *queue.Queue
	BotID    *int64
}

// Snapshot collects the current counters.
func (s *StatsService) Snapshot(ctx context.Context) (*Stats, error) {
	out := &Stats{
		LiveMessages:   s.Registry.Len(),
		QueueDepth:     s.Queue.Len(),
		RetentionHours: s.Registry.Retention().Hours(),
	}
	var err error
	if out.MappingRows, out.NewestMapping, err = repo.MappingStats(ctx, s.DB, s.BotID); err != nil {
		return nil, err
	}
	var bot int64
	if s.BotID != nil {
		bot = *s.BotID
	}
	if out.Reachable, out.Unreachable, err = repo.ReachabilityStats(ctx, s.DB, bot); err != nil {
		return nil, err
	}
	return out, nil
}
