package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/repository"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

// ActivityService exposes the audit trail read models: paginated listing,
// per-entity history and windowed aggregation. It never writes entries; the
// audit recorder owns the write path.
type ActivityService interface {
	List(ctx context.Context, actor Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	EntityHistory(ctx context.Context, actor Actor, entityType string, entityID uint) ([]dto.ActivityResponse, error)
	Stats(ctx context.Context, actor Actor, window time.Duration) (dto.ActivityStatsResponse, error)
}

type activityService struct {
	repo     repository.ActivityLogRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewActivityService constructs the activity log read service.
func NewActivityService(repo repository.ActivityLogRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "activity_service").Logger(),
		now:      time.Now,
	}
}

func (s *activityService) List(ctx context.Context, actor Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if !actor.IsAdmin() {
		return dto.ActivityListResponse{}, apperr.New(apperr.Forbidden, "only admins may list the audit trail")
	}

	filter := repository.ActivityLogFilter{
		TenantID:   actor.TenantID,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
		Severity:   strings.TrimSpace(req.Severity),
		From:       req.From,
		To:         req.To,
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.ActivityListResponse{Items: responses, Pagination: pagination}, nil
}

func (s *activityService) EntityHistory(ctx context.Context, actor Actor, entityType string, entityID uint) ([]dto.ActivityResponse, error) {
	if !actor.IsAdmin() && actor.Role != RoleProfessor {
		return nil, apperr.New(apperr.Forbidden, "only admins and professors may view entity history")
	}

	entries, err := s.repo.ListByEntity(ctx, actor.TenantID, strings.TrimSpace(entityType), entityID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	return responses, nil
}

func (s *activityService) Stats(ctx context.Context, actor Actor, window time.Duration) (dto.ActivityStatsResponse, error) {
	if !actor.IsAdmin() {
		return dto.ActivityStatsResponse{}, apperr.New(apperr.Forbidden, "only admins may view activity stats")
	}

	if window <= 0 {
		window = 24 * time.Hour
	}

	cacheKey := fmt.Sprintf("activity:stats:%s:%dh", actor.TenantID, int(window.Hours()))

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.ActivityStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read activity stats cache")
		}
	}

	since := s.now().Add(-window)
	counts, err := s.repo.CountSince(ctx, actor.TenantID, since)
	if err != nil {
		return dto.ActivityStatsResponse{}, err
	}

	stats := dto.ActivityStatsResponse{
		WindowHours:  int(window.Hours()),
		ByAction:     map[string]int64{},
		BySeverity:   map[string]int64{},
		ByEntityType: map[string]int64{},
		GeneratedAt:  s.now(),
	}
	for _, bucket := range counts {
		stats.Total += bucket.Count
		stats.ByAction[bucket.Action] += bucket.Count
		stats.BySeverity[bucket.Severity] += bucket.Count
		stats.ByEntityType[bucket.EntityType] += bucket.Count
	}

	if s.cache != nil {
		payload, err := json.Marshal(stats)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store activity stats cache")
			}
		}
	}

	return stats, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
