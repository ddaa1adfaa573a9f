package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueGenerateScript = "queue:generate_script"
	QueueProcessScene   = "queue:process_scene"
	QueueAssembleVideo  = "queue:assemble_video"
)

type Queue struct {
	client *redis.Client
}

type Job struct {
	ID        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	ProjectID uuid.UUID              `json:"project_id"`
	SceneID   *uuid.UUID             `json:"scene_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueGenerateScript enqueues a script generation job
func (q *Queue) EnqueueGenerateScript(ctx context.Context, projectID uuid.UUID, jobID uuid.UUID) error {
	job := &Job{
		ID:        jobID,
		Type:      "generate_script",
		ProjectID: projectID,
	}
	return q.Enqueue(ctx, QueueGenerateScript, job)
}

// EnqueueProcessScene enqueues a scene asset acquisition job
func (q *Queue) EnqueueProcessScene(ctx context.Context, projectID, sceneID, jobID uuid.UUID) error {
	job := &Job{
		ID:        jobID,
		Type:      "process_scene",
		ProjectID: projectID,
		SceneID:   &sceneID,
	}
	return q.Enqueue(ctx, QueueProcessScene, job)
}

// EnqueueAssembleVideo enqueues a final video assembly job
func (q *Queue) EnqueueAssembleVideo(ctx context.Context, projectID, jobID uuid.UUID) error {
	job := &Job{
		ID:        jobID,
		Type:      "assemble_video",
		ProjectID: projectID,
	}
	return q.Enqueue(ctx, QueueAssembleVideo, job)
}
