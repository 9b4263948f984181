package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/remindwise/internal/profile"
	"github.com/hrygo/remindwise/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Behavior profiles are read on every scheduling call and written rarely,
	// so they get a read-through cache.
	behaviorProfileCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
		OnEviction:      nil,
	}

	return &Store{
		driver:               driver,
		profile:              profile,
		cacheConfig:          cacheConfig,
		behaviorProfileCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	s.behaviorProfileCache.Close()
	return s.driver.Close()
}

// Task methods.

func (s *Store) GetTask(ctx context.Context, find *FindTask) (*Task, error) {
	return s.driver.GetTask(ctx, find)
}

func (s *Store) ListTasks(ctx context.Context, find *FindTask) ([]*Task, error) {
	return s.driver.ListTasks(ctx, find)
}

func (s *Store) UpdateTask(ctx context.Context, update *UpdateTask) (*Task, error) {
	return s.driver.UpdateTask(ctx, update)
}

// BehaviorProfile methods.

func behaviorProfileCacheKey(userID int32) string {
	return fmt.Sprintf("behavior_profile:%d", userID)
}

// GetBehaviorProfile returns the stored profile for a user, or the default
// profile when none exists. The result is cached.
func (s *Store) GetBehaviorProfile(ctx context.Context, userID int32) (*BehaviorProfile, error) {
	key := behaviorProfileCacheKey(userID)
	if cached, ok := s.behaviorProfileCache.Get(key); ok {
		if bp, ok := cached.(*BehaviorProfile); ok {
			return bp, nil
		}
	}

	bp, err := s.driver.GetBehaviorProfile(ctx, &FindBehaviorProfile{UserID: &userID})
	if err != nil {
		return nil, err
	}
	if bp == nil {
		bp = DefaultBehaviorProfile(userID)
	}
	s.behaviorProfileCache.Set(key, bp)
	return bp, nil
}

func (s *Store) UpsertBehaviorProfile(ctx context.Context, upsert *UpsertBehaviorProfile) (*BehaviorProfile, error) {
	bp, err := s.driver.UpsertBehaviorProfile(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.behaviorProfileCache.Delete(behaviorProfileCacheKey(upsert.UserID))
	return bp, nil
}

// OfflineQueue methods.

func (s *Store) CreateOfflineQueueEntry(ctx context.Context, create *OfflineQueueEntry) (*OfflineQueueEntry, error) {
	return s.driver.CreateOfflineQueueEntry(ctx, create)
}

func (s *Store) ListOfflineQueueEntries(ctx context.Context, find *FindOfflineQueueEntry) ([]*OfflineQueueEntry, error) {
	return s.driver.ListOfflineQueueEntries(ctx, find)
}

func (s *Store) DeleteOfflineQueueEntry(ctx context.Context, delete *DeleteOfflineQueueEntry) error {
	return s.driver.DeleteOfflineQueueEntry(ctx, delete)
}

// ReminderAnalytics methods.

func (s *Store) CreateReminderAnalytics(ctx context.Context, create *CreateReminderAnalytics) (*ReminderAnalytics, error) {
	return s.driver.CreateReminderAnalytics(ctx, create)
}

func (s *Store) UpdateReminderResponse(ctx context.Context, update *UpdateReminderResponse) error {
	return s.driver.UpdateReminderResponse(ctx, update)
}

func (s *Store) ListReminderAnalytics(ctx context.Context, find *FindReminderAnalytics) ([]*ReminderAnalytics, error) {
	return s.driver.ListReminderAnalytics(ctx, find)
}
