package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const notificationList = "notification_jobs"

type NotificationJob struct {
	ClassID   string `json:"class_id"`
	MeetingID string `json:"meeting_id,omitempty"`
	Message   string `json:"message"`
}

type Queue struct {
	client *redis.Client
}

func New(url string) (*Queue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	return &Queue{client: client}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) PushNotificationJob(ctx context.Context, job NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, notificationList, payload).Err()
}

func (q *Queue) PopNotificationJob(ctx context.Context, timeout time.Duration) (NotificationJob, error) {
	res, err := q.client.BRPop(ctx, timeout, notificationList).Result()
	if err != nil {
		return NotificationJob{}, err
	}
	if len(res) < 2 {
		return NotificationJob{}, redis.Nil
	}
	var job NotificationJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return NotificationJob{}, err
	}
	return job, nil
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, notificationList).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
