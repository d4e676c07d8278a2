package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-relay-backend/internal/queue"
	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

const testBot int64 = 77

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:relaysvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// engine wires every component against one sqlite database and a loopback
// transport.
type engine struct {
	db     *gorm.DB
	store  *repo.Store
	reg    *registry.Registry
	q      *queue.Queue
	tp     *transport.Loopback
	reach  *ReachabilityCache
	disp   *Dispatcher
	relay  *RelayService
	mirror *MirrorService
	mod    *ModerationService
	users  *UserService
	expiry *ExpiryTask
	bot    *int64
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := newServiceDB(t)
	bot := testBot
	e := &engine{
		db:    db,
		store: repo.NewStore(db),
		reg:   registry.New(48 * time.Hour),
		q:     queue.New(),
		tp:    transport.NewLoopback(),
		bot:   &bot,
	}
	e.reach = NewReachabilityCache(e.store, bot, time.Minute)
	e.disp = &Dispatcher{
		Queue:        e.q,
		Registry:     e.reg,
		Store:        e.store,
		Reach:        e.reach,
		Transport:    e.tp,
		BotID:        e.bot,
		RetryWindow:  time.Minute,
		RetryBackoff: time.Millisecond,
	}
	e.relay = &RelayService{Registry: e.reg, Store: e.store, Users: e.store, Reach: e.reach, Dispatcher: e.disp, BotID: e.bot}
	e.mirror = &MirrorService{Registry: e.reg, Store: e.store, Transport: e.tp, Users: e.store, BotID: e.bot}
	e.mod = &ModerationService{Registry: e.reg, Users: e.store, Mirror: e.mirror, Transport: e.tp}
	e.users = &UserService{Users: e.store, Reach: e.reach}
	e.expiry = &ExpiryTask{Registry: e.reg, Queue: e.q}
	return e
}

func (e *engine) join(t *testing.T, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		if _, err := e.users.Join(context.Background(), id, nil, fmt.Sprintf("user%d", id)); err != nil {
			t.Fatalf("join %d: %v", id, err)
		}
	}
}

// drain processes every queued job synchronously.
func (e *engine) drain(t *testing.T) []Outcome {
	t.Helper()
	var out []Outcome
	ctx := context.Background()
	for e.q.Len() > 0 {
		job, ok := e.q.Pop(ctx)
		if !ok {
			t.Fatalf("pop failed with %d pending", e.q.Len())
		}
		out = append(out, e.disp.Process(ctx, job))
	}
	return out
}

func (e *engine) setRank(t *testing.T, id int64, rank int) {
	t.Helper()
	if err := e.db.Exec("UPDATE users SET rank = ? WHERE id = ?", rank, id).Error; err != nil {
		t.Fatalf("set rank: %v", err)
	}
}

func payload(s string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"text": s})
	return b
}
