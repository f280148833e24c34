package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionEssay          QuestionType = "essay"
)

// swagger:model Question
type Question struct {
	BaseModel

	QuizID      uint         `gorm:"index;type:bigint unsigned" json:"quizId"`
	Position    int          `gorm:"default:0" json:"position"`
	Type        QuestionType `gorm:"size:50;not null" json:"type"`
	Text        string       `gorm:"type:text;not null" json:"text"`
	Points      int          `gorm:"not null" json:"points"`
	Payload     string       `gorm:"type:json" json:"payload"`     // 按题型存放的 JSON 负载
	Explanation string       `gorm:"type:text" json:"explanation"` // 答案解析，仅在出分后返回
}

func (Question) TableName() string {
	return "questions"
}

// QuestionPayload 是各题型负载的和类型，评分器对其做穷尽的类型分派。
type QuestionPayload interface {
	questionPayload()
}

type MultipleChoicePayload struct {
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
}

type TrueFalsePayload struct {
	CorrectAnswer bool `json:"correctAnswer"`
}

type FillBlankPayload struct {
	CorrectAnswer string `json:"correctAnswer"`
}

// EssayPayload 没有标准答案，始终进入人工评分。
type EssayPayload struct{}

func (MultipleChoicePayload) questionPayload() {}
func (TrueFalsePayload) questionPayload()      {}
func (FillBlankPayload) questionPayload()      {}
func (EssayPayload) questionPayload()          {}

// DecodePayload 把存储的 JSON 负载还原为对应题型的结构。
// 未知题型返回错误，调用方必须整体拒绝提交。
func (q *Question) DecodePayload() (QuestionPayload, error) {
	switch q.Type {
	case QuestionMultipleChoice:
		var p MultipleChoicePayload
		if err := json.Unmarshal([]byte(q.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode multiple_choice payload: %w", err)
		}
		return p, nil
	case QuestionTrueFalse:
		var p TrueFalsePayload
		if err := json.Unmarshal([]byte(q.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode true_false payload: %w", err)
		}
		return p, nil
	case QuestionFillBlank:
		var p FillBlankPayload
		if err := json.Unmarshal([]byte(q.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode fill_blank payload: %w", err)
		}
		return p, nil
	case QuestionEssay:
		return EssayPayload{}, nil
	default:
		return nil, fmt.Errorf("unsupported question type %q", q.Type)
	}
}

// RequiresManualGrading 判断该题型是否必须人工评分。
func (q *Question) RequiresManualGrading() bool {
	return q.Type == QuestionEssay
}

// Validate 出题时的完整性校验：分值必须为正，选择题的正确项必须在选项内。
func (q *Question) Validate() error {
	if q.Points <= 0 {
		return errors.New("question points must be positive")
	}
	payload, err := q.DecodePayload()
	if err != nil {
		return err
	}
	if p, ok := payload.(MultipleChoicePayload); ok {
		if len(p.Options) < 2 {
			return errors.New("multiple_choice question needs at least two options")
		}
		found := false
		for _, opt := range p.Options {
			if strings.TrimSpace(opt) == strings.TrimSpace(p.CorrectOption) {
				found = true
				break
			}
		}
		if !found {
			return errors.New("correctOption must be one of options")
		}
	}
	return nil
}
