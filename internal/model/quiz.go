package model

import (
	"time"
)

// swagger:model Quiz
type Quiz struct {
	BaseModel

	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	CourseID    uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	PassingScorePercent int  `gorm:"default:60" json:"passingScorePercent"`
	MaxAttempts         int  `gorm:"default:0" json:"maxAttempts"` // 0 = 不限次数
	ShuffleQuestions    bool `gorm:"default:false" json:"shuffleQuestions"`
	TimeLimitSeconds    int  `gorm:"default:0" json:"timeLimitSeconds"` // 0 = 不限时

	// CompletionGating 标记通过该测验是否触发课程完成/证书事件
	CompletionGating bool `gorm:"default:false" json:"completionGating"`

	IsPublished        bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
	ScheduledPublishAt *time.Time `json:"scheduledPublishAt,omitempty"` // 定时发布时间

	CurrentVersion uint `gorm:"default:0" json:"currentVersion"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
