package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"maflab-backend/internal/models"
	"maflab-backend/internal/repository"
	"maflab-backend/internal/services"
)

// Pool runs the background jobs: badge evaluation after point awards and
// admin report generation. Jobs travel through Redis lists; a SetNX lock
// keeps two workers off the same job.
type Pool struct {
	redis       *redis.Client
	jobRepo     *repository.JobRepo
	gamRepo     *repository.GamificationRepo
	sessionRepo *repository.SessionRepo
	reports     *services.ReportService
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	jobRepo *repository.JobRepo,
	gamRepo *repository.GamificationRepo,
	sessionRepo *repository.SessionRepo,
	reports *services.ReportService,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		jobRepo:     jobRepo,
		gamRepo:     gamRepo,
		sessionRepo: sessionRepo,
		reports:     reports,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		"queue:" + models.JobBadgeEvaluation,
		"queue:" + models.JobReportGeneration,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case models.JobBadgeEvaluation:
			processErr = p.processBadgeEvaluation(ctx, &job)
		case models.JobReportGeneration:
			processErr = p.processReportGeneration(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.jobRepo.UpdateStatus(ctx, job.ID, "completed")
			log.Printf("Job %s completed successfully", job.ID)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// badgeRule names a badge and the condition that earns it.
type badgeRule struct {
	name  string
	check func(points *models.PointsRecord, sessionCount int) bool
}

var badgeRules = []badgeRule{
	{"first-steps", func(_ *models.PointsRecord, sessions int) bool { return sessions >= 1 }},
	{"persistent-writer", func(_ *models.PointsRecord, sessions int) bool { return sessions >= 10 }},
	{"marathon-writer", func(_ *models.PointsRecord, sessions int) bool { return sessions >= 25 }},
	{"level-up", func(p *models.PointsRecord, _ int) bool { return p.TotalPoints >= 100 }},
	{"high-flyer", func(p *models.PointsRecord, _ int) bool { return p.TotalPoints >= 500 }},
	{"scholar", func(p *models.PointsRecord, _ int) bool { return p.TotalPoints >= 1000 }},
}

func (p *Pool) processBadgeEvaluation(ctx context.Context, job *models.Job) error {
	userID := job.ReferenceID

	rec, err := p.gamRepo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load points: %w", err)
	}
	sessionCount, err := p.sessionRepo.CountByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}

	for _, rule := range badgeRules {
		if !rule.check(rec, sessionCount) {
			continue
		}
		awarded, err := p.gamRepo.AwardBadge(ctx, userID, rule.name)
		if err != nil {
			return fmt.Errorf("failed to award badge %s: %w", rule.name, err)
		}
		if awarded {
			p.publish(ctx, userID, models.WSMessage{
				Type:    "badge_earned",
				Payload: models.BadgeEarned{Name: rule.name},
			})
			log.Printf("Badge %s awarded to user %s", rule.name, userID)
		}
	}

	return nil
}

func (p *Pool) processReportGeneration(ctx context.Context, job *models.Job) error {
	var config struct {
		Title string `json:"title"`
	}
	json.Unmarshal(job.ConfigJSON, &config)

	report, err := p.reports.Generate(ctx, job.UserID, config.Title)
	if err != nil {
		return err
	}

	p.publish(ctx, job.UserID, models.WSMessage{
		Type: "report_ready",
		Payload: models.ReportReady{
			ReportID: report.ID,
			Title:    report.Title,
		},
	})

	return nil
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < 3 {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		// Re-queue after backoff
		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), "queue:"+job.Type, string(jobBytes))
		})
	} else {
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		p.publish(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: map[string]interface{}{
				"job_id":        job.ID,
				"error_code":    "JOB_FAILED",
				"error_message": errMsg,
			},
		})
	}
}

func (p *Pool) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, "user_updates:"+userID.String(), string(data))
}
