package model

import "time"

type AttemptStatus string

const (
	AttemptAwaitingManual AttemptStatus = "awaiting_manual"
	AttemptFinal          AttemptStatus = "final"
)

type GradingStatus string

const (
	GradingAuto    GradingStatus = "auto"
	GradingPending GradingStatus = "pending"
	GradingGraded  GradingStatus = "graded"
)

// Attempt 是一次测验提交及其评分结果。
// (quiz_id, enrollment_id, attempt_number) 上的唯一索引是次数上限
// 并发检查的数据库兜底，应用层不加互斥锁。
type Attempt struct {
	BaseModel

	QuizID        uint `gorm:"uniqueIndex:idx_attempt_seq;type:bigint unsigned" json:"quizId"`
	EnrollmentID  uint `gorm:"uniqueIndex:idx_attempt_seq;type:bigint unsigned" json:"enrollmentId"`
	AttemptNumber int  `gorm:"uniqueIndex:idx_attempt_seq;not null" json:"attemptNumber"`

	QuizVersionID uint          `gorm:"type:bigint unsigned" json:"quizVersionId"` // 评分所依据的版本快照
	Status        AttemptStatus `gorm:"size:50;not null;default:awaiting_manual" json:"status"`
	Score         int           `gorm:"default:0" json:"score"`
	TotalPoints   int           `gorm:"default:0" json:"totalPoints"`
	Passed        *bool         `json:"passed"` // 仍有待批改题时为 nil
	SubmittedAt   time.Time     `json:"submittedAt"`
	FinalizedAt   *time.Time    `json:"finalizedAt,omitempty"`
	TimeSpent     int           `gorm:"default:0" json:"timeSpent"` // 秒

	// 重试去重键，由客户端提供，命中即返回首次结果
	IdempotencyKey *string `gorm:"size:191;uniqueIndex" json:"idempotencyKey,omitempty"`

	Answers []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
	Results []AttemptResult `gorm:"foreignKey:AttemptID" json:"results,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AttemptAnswer 保留学生提交的原始作答，评分永远基于它重算。
type AttemptAnswer struct {
	BaseModel

	AttemptID  uint   `gorm:"uniqueIndex:idx_answer_question;type:bigint unsigned" json:"attemptId"`
	QuestionID uint   `gorm:"uniqueIndex:idx_answer_question;type:bigint unsigned" json:"questionId"`
	Response   string `gorm:"type:json" json:"response"` // 原始 JSON 作答
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// AttemptResult 是每道题的得分记录，自动或人工评分各写一行。
type AttemptResult struct {
	BaseModel

	AttemptID     uint          `gorm:"uniqueIndex:idx_result_question;type:bigint unsigned" json:"attemptId"`
	QuestionID    uint          `gorm:"uniqueIndex:idx_result_question;type:bigint unsigned" json:"questionId"`
	AwardedPoints int           `gorm:"default:0" json:"awardedPoints"`
	MaxPoints     int           `gorm:"not null" json:"maxPoints"`
	Correct       *bool         `json:"correct"` // 待人工评分时为 nil
	GradingStatus GradingStatus `gorm:"size:50;not null;default:auto" json:"gradingStatus"`
	GraderID      *uint         `gorm:"type:bigint unsigned" json:"graderId,omitempty"`
	Feedback      string        `gorm:"type:text" json:"feedback"`
	Explanation   string        `gorm:"type:text" json:"explanation,omitempty"` // 提交时从题目快照复制，定稿后随结果返回
	GradedAt      *time.Time    `json:"gradedAt,omitempty"`
}

func (AttemptResult) TableName() string {
	return "attempt_results"
}

// Pending 为 true 表示该题仍在等待人工评分。
func (r *AttemptResult) Pending() bool {
	return r.GradingStatus == GradingPending
}
