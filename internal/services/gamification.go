package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
)

// Point values per rewarded action.
const (
	PointsStartSession = 10
	PointsAIFeedback   = 20
	PointsSaveSession  = 30
	PointsSaveVersion  = 5
	PointsReflection   = 15
)

// Level maps a cumulative point total to a level, 100 points per level.
func Level(total int) int {
	if total < 0 {
		total = 0
	}
	return total/100 + 1
}

// PointsToNextLevel returns how many points remain until the next level.
func PointsToNextLevel(total int) int {
	if total < 0 {
		total = 0
	}
	return 100 - total%100
}

type GamificationService struct {
	repo    *repository.GamificationRepo
	jobRepo *repository.JobRepo
	redis   *redis.Client
}

func NewGamificationService(repo *repository.GamificationRepo, jobRepo *repository.JobRepo, redisClient *redis.Client) *GamificationService {
	return &GamificationService{
		repo:    repo,
		jobRepo: jobRepo,
		redis:   redisClient,
	}
}

// Award adds points for an action and returns the updated record. The
// database increment is atomic; the WebSocket notification and the badge
// evaluation job are best-effort and never fail the award.
func (s *GamificationService) Award(ctx context.Context, userID uuid.UUID, points int, reason string) (*models.PointsRecord, error) {
	rec, err := s.repo.AddPoints(ctx, userID, points)
	if err != nil {
		return nil, fmt.Errorf("failed to award points: %w", err)
	}

	s.publish(ctx, userID, models.WSMessage{
		Type: "points_update",
		Payload: models.PointsUpdate{
			TotalPoints: rec.TotalPoints,
			Level:       rec.Level,
			Awarded:     points,
			Reason:      reason,
		},
	})

	if err := s.enqueueBadgeEvaluation(ctx, userID); err != nil {
		log.Printf("failed to enqueue badge evaluation for user %s: %v", userID, err)
	}

	return rec, nil
}

func (s *GamificationService) enqueueBadgeEvaluation(ctx context.Context, userID uuid.UUID) error {
	job := &models.Job{
		UserID:      userID,
		Type:        models.JobBadgeEvaluation,
		ReferenceID: userID,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return err
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.LPush(ctx, "queue:"+models.JobBadgeEvaluation, string(jobBytes)).Err()
}

func (s *GamificationService) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}
