// Package quota enforces per-user generation limits backed by Redis counters.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrExceeded is returned when a user has no generations left in a window.
var ErrExceeded = errors.New("quota exceeded")

const (
	dailyKeyPrefix  = "quota:daily:"  // quota:daily:{uid}:{yyyy-mm-dd}
	weeklyKeyPrefix = "quota:weekly:" // quota:weekly:{uid}:{yyyy-Www}
	dailyTTL        = 48 * time.Hour
	weeklyTTL       = 8 * 24 * time.Hour
)

// Usage reports a user's consumption. A limit of zero means unlimited.
type Usage struct {
	DailyUsed   int64 `json:"dailyUsed"`
	DailyLimit  int   `json:"dailyLimit"`
	WeeklyUsed  int64 `json:"weeklyUsed"`
	WeeklyLimit int   `json:"weeklyLimit"`
}

// Remaining returns how many generations are left today, or -1 when unlimited.
func (u Usage) Remaining() int64 {
	rem := int64(-1)
	if u.DailyLimit > 0 {
		rem = max(int64(u.DailyLimit)-u.DailyUsed, 0)
	}
	if u.WeeklyLimit > 0 {
		w := max(int64(u.WeeklyLimit)-u.WeeklyUsed, 0)
		if rem < 0 || w < rem {
			rem = w
		}
	}
	return rem
}

// Exhausted reports whether either window is used up.
func (u Usage) Exhausted() bool {
	return u.Remaining() == 0
}

// Store keeps daily and weekly counters per user.
type Store struct {
	client      *redis.Client
	dailyLimit  int
	weeklyLimit int
	now         func() time.Time
}

// NewStore returns a Store enforcing the given limits. Non-positive limits disable that window.
func NewStore(client *redis.Client, dailyLimit, weeklyLimit int) *Store {
	return &Store{
		client:      client,
		dailyLimit:  dailyLimit,
		weeklyLimit: weeklyLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Usage returns the current counters for uid.
func (s *Store) Usage(ctx context.Context, uid string) (Usage, error) {
	now := s.now()
	pipe := s.client.Pipeline()
	daily := pipe.Get(ctx, s.dailyKey(uid, now))
	weekly := pipe.Get(ctx, s.weeklyKey(uid, now))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Usage{}, fmt.Errorf("failed to read quota: %w", err)
	}

	u := Usage{DailyLimit: s.dailyLimit, WeeklyLimit: s.weeklyLimit}
	var err error
	if u.DailyUsed, err = counter(daily); err != nil {
		return Usage{}, err
	}
	if u.WeeklyUsed, err = counter(weekly); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// Check returns ErrExceeded when uid has nothing left.
func (s *Store) Check(ctx context.Context, uid string) (Usage, error) {
	u, err := s.Usage(ctx, uid)
	if err != nil {
		return Usage{}, err
	}
	if u.Exhausted() {
		return u, ErrExceeded
	}
	return u, nil
}

// Increment counts one generation for uid in both windows.
func (s *Store) Increment(ctx context.Context, uid string) error {
	now := s.now()
	if _, _, err := s.incr(ctx, s.dailyKey(uid, now), s.weeklyKey(uid, now)); err != nil {
		return err
	}
	return nil
}

// Reservation is one counted generation that can still be refunded.
type Reservation struct {
	dailyKey  string
	weeklyKey string
}

// Reserve counts one generation for uid up front. When that takes either
// window over its limit the unit is refunded and ErrExceeded is returned
// with the usage as it was before the attempt.
func (s *Store) Reserve(ctx context.Context, uid string) (Reservation, Usage, error) {
	now := s.now()
	r := Reservation{dailyKey: s.dailyKey(uid, now), weeklyKey: s.weeklyKey(uid, now)}

	daily, weekly, err := s.incr(ctx, r.dailyKey, r.weeklyKey)
	if err != nil {
		return Reservation{}, Usage{}, err
	}
	u := Usage{DailyUsed: daily, DailyLimit: s.dailyLimit, WeeklyUsed: weekly, WeeklyLimit: s.weeklyLimit}
	if (s.dailyLimit > 0 && daily > int64(s.dailyLimit)) || (s.weeklyLimit > 0 && weekly > int64(s.weeklyLimit)) {
		if err := s.Release(ctx, r); err != nil {
			return Reservation{}, Usage{}, err
		}
		u.DailyUsed--
		u.WeeklyUsed--
		return Reservation{}, u, ErrExceeded
	}
	return r, u, nil
}

// releaseScript decrements each key that is still positive, so a refund
// after ResetDaily does not drive a counter below zero.
var releaseScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
	if tonumber(redis.call("GET", key) or "0") > 0 then
		redis.call("DECR", key)
	end
end
return 0
`)

// Release refunds a reservation.
func (s *Store) Release(ctx context.Context, r Reservation) error {
	if r.dailyKey == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, s.client, []string{r.dailyKey, r.weeklyKey}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release quota: %w", err)
	}
	return nil
}

func (s *Store) incr(ctx context.Context, dailyKey, weeklyKey string) (int64, int64, error) {
	pipe := s.client.TxPipeline()
	daily := pipe.Incr(ctx, dailyKey)
	pipe.Expire(ctx, dailyKey, dailyTTL)
	weekly := pipe.Incr(ctx, weeklyKey)
	pipe.Expire(ctx, weeklyKey, weeklyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment quota: %w", err)
	}
	return daily.Val(), weekly.Val(), nil
}

// ResetDaily deletes every daily counter and returns how many were removed.
func (s *Store) ResetDaily(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, dailyKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan daily quota keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete daily quota keys: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) dailyKey(uid string, t time.Time) string {
	return dailyKeyPrefix + uid + ":" + t.Format("2006-01-02")
}

func (s *Store) weeklyKey(uid string, t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%s%s:%04d-W%02d", weeklyKeyPrefix, uid, year, week)
}

func counter(cmd *redis.StringCmd) (int64, error) {
	n, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to parse quota counter: %w", err)
	}
	return n, nil
}
