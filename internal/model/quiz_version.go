package model

import "time"

// QuizVersion 保存测验及其题目的快照。评分相关字段（分值、正确答案、及格线）
// 的每次变更都会产生新版本；Attempt 引用提交时的版本，保证历史成绩不随后续编辑漂移。
// swagger:model QuizVersion
type QuizVersion struct {
	BaseModel

	QuizID        uint       `gorm:"index;type:bigint unsigned" json:"quizId"`
	VersionNumber int        `gorm:"default:1" json:"versionNumber"`
	EditorID      uint       `gorm:"index;type:bigint unsigned" json:"editorId"`
	ChangeNote    string     `gorm:"type:text" json:"changeNote"`
	Content       string     `gorm:"type:json" json:"content"` // JSON: {quiz, questions}
	IsPublished   bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
}

func (QuizVersion) TableName() string {
	return "quiz_versions"
}

// QuizSnapshot 是版本 Content 字段的结构。
type QuizSnapshot struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}
