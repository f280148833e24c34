package service

import (
	"context"
	"encoding/json"
	"time"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// FinalizedEvent 在一次作答定稿时发给证书服务。
// 最优成绩还是最新成绩的取舍由订阅方决定，这里只负责播报事实。
type FinalizedEvent struct {
	AttemptID     uint      `json:"attemptId"`
	QuizID        uint      `json:"quizId"`
	EnrollmentID  uint      `json:"enrollmentId"`
	AttemptNumber int       `json:"attemptNumber"`
	Score         int       `json:"score"`
	TotalPoints   int       `json:"totalPoints"`
	Passed        bool      `json:"passed"`
	FinalizedAt   time.Time `json:"finalizedAt"`
}

// CertificateNotifier 是证书服务的外部接口，定稿后异步通知。
type CertificateNotifier interface {
	NotifyFinalized(ctx context.Context, event FinalizedEvent) error
}

// RedisNotifier 通过 Redis 发布订阅把定稿事件广播出去。
type RedisNotifier struct {
	Client  *redis.Client
	Channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{Client: client, Channel: channel}
}

func (n *RedisNotifier) NotifyFinalized(ctx context.Context, event FinalizedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.Client.Publish(ctx, n.Channel, payload).Err(); err != nil {
		// 通知失败不回滚成绩，记录后由证书服务补偿拉取
		logger.Log.Error("publish finalized event failed",
			zap.Uint("attemptId", event.AttemptID),
			zap.Error(err))
		return err
	}
	return nil
}

// notifyFinalized 在定稿边沿决定要不要惊动证书服务：只有通过、
// 且测验参与课程完结判定时才发布事件，失败或普通测验的定稿不发。
func notifyFinalized(ctx context.Context, notifier CertificateNotifier, quiz *model.Quiz, attempt *model.Attempt) {
	if notifier == nil || attempt.Passed == nil {
		return
	}
	if !*attempt.Passed || !quiz.CompletionGating {
		return
	}
	event := FinalizedEvent{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		EnrollmentID:  attempt.EnrollmentID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         attempt.Score,
		TotalPoints:   attempt.TotalPoints,
		Passed:        *attempt.Passed,
		FinalizedAt:   time.Now(),
	}
	if attempt.FinalizedAt != nil {
		event.FinalizedAt = *attempt.FinalizedAt
	}
	_ = notifier.NotifyFinalized(ctx, event)
}

// NopNotifier 在未配置 Redis 时退化为空实现。
type NopNotifier struct{}

func (NopNotifier) NotifyFinalized(ctx context.Context, event FinalizedEvent) error {
	return nil
}
