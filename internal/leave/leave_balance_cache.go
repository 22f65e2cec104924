package leave

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	leaveerrors "go-conge/internal/leave/errors"
	"go-conge/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	RemainingDaysKeyPrefix           = "leaves:remaining:"
	RemainingDaysGenerationKeyPrefix = "leaves:remaining:gen:"
)

// GetRemainingDaysKey names the cached balance for one generation.
func GetRemainingDaysKey(userID string, year int, generation int64) string {
	return fmt.Sprintf("%s%s:%d:g%d", RemainingDaysKeyPrefix, userID, year, generation)
}

// GetRemainingDaysGenerationKey names the counter bumped after every write
// to userID's year. It never expires so a generation is never reused.
func GetRemainingDaysGenerationKey(userID string, year int) string {
	return fmt.Sprintf("%s%s:%d", RemainingDaysGenerationKeyPrefix, userID, year)
}

// GetRemainingDays serves the balance from Redis when possible. Misses are
// collapsed per key so a burst of readers costs one SUM query.
func (s *service) GetRemainingDays(ctx context.Context, userID string, year int) (int, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, leaveerrors.ErrInvalidUserID
	}
	if year < 1 {
		return 0, leaveerrors.ErrInvalidYear
	}

	generation, useCache := s.remainingDaysGeneration(ctx, userID, year)
	cacheKey := GetRemainingDaysKey(userID, year, generation)
	if useCache {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			if n, err := strconv.Atoi(cached); err == nil {
				return n, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		remaining, err := NewBalanceAggregator(s.repo, s.cfg.AnnualCap).RemainingDays(ctx, userID, year)
		if err != nil {
			contextutil.GetLogger(ctx, s.logger).Error("remaining days query failed",
				zap.String("user_id", userID),
				zap.Int("year", year),
				zap.Error(err),
			)
			return 0, mapRepositoryError(err)
		}

		if useCache {
			if err := s.rdb.Set(ctx, cacheKey, remaining, s.cfg.BalanceCacheTTL).Err(); err != nil {
				s.logger.Warn("cache remaining days failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
		return remaining, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(int), nil
}

// remainingDaysGeneration reads the current generation. It reports false when
// the cache must be bypassed.
func (s *service) remainingDaysGeneration(ctx context.Context, userID string, year int) (int64, bool) {
	if s.rdb == nil {
		return 0, false
	}
	genKey := GetRemainingDaysGenerationKey(userID, year)
	generation, err := s.rdb.Get(ctx, genKey).Int64()
	switch {
	case err == nil:
		return generation, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		s.logger.Warn("read remaining days generation failed", zap.String("key", genKey), zap.Error(err))
		return 0, false
	}
}

// invalidateRemainingDays runs after commit. Bumping the generation orphans
// any value a concurrent reader computed from pre-commit rows.
func (s *service) invalidateRemainingDays(ctx context.Context, userID string, year int) {
	if s.rdb == nil {
		return
	}
	genKey := GetRemainingDaysGenerationKey(userID, year)
	if err := s.rdb.Incr(ctx, genKey).Err(); err != nil {
		s.logger.Error("failed to invalidate remaining days cache",
			zap.String("key", genKey),
			zap.Error(err),
		)
	}
}
