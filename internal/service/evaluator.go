package service

import (
	"encoding/json"
	"strings"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/util"
)

// Evaluation 是单题评分结论。NeedsManual 为 true 时 AwardedPoints
// 与 Correct 都是占位值，不得作为成绩对外返回。
type Evaluation struct {
	AwardedPoints int
	Correct       *bool
	NeedsManual   bool
}

// EvaluateQuestion 对一道题评分。纯函数，不碰数据库。
// 题型分派必须穷尽：未知题型返回 ErrUnsupportedQuestionType，
// 调用方应整体拒绝提交而不是跳过该题。
func EvaluateQuestion(q *model.Question, response json.RawMessage) (Evaluation, error) {
	payload, err := q.DecodePayload()
	if err != nil {
		return Evaluation{}, util.ErrUnsupportedQuestionType
	}

	answered := len(response) > 0 && string(response) != "null"

	switch p := payload.(type) {
	case model.MultipleChoicePayload:
		correct := answered && decodeString(response) == p.CorrectOption
		return autoResult(correct, q.Points), nil

	case model.TrueFalsePayload:
		if !answered {
			return autoResult(false, q.Points), nil
		}
		given, ok := decodeBool(response)
		correct := ok && given == p.CorrectAnswer
		return autoResult(correct, q.Points), nil

	case model.FillBlankPayload:
		given := strings.ToLower(strings.TrimSpace(decodeString(response)))
		want := strings.ToLower(strings.TrimSpace(p.CorrectAnswer))
		correct := answered && given != "" && given == want
		return autoResult(correct, q.Points), nil

	case model.EssayPayload:
		// 问答题一律人工批改，空白作答也要进队列让教师看到
		return Evaluation{NeedsManual: true}, nil

	default:
		return Evaluation{}, util.ErrUnsupportedQuestionType
	}
}

func autoResult(correct bool, points int) Evaluation {
	awarded := 0
	if correct {
		awarded = points
	}
	c := correct
	return Evaluation{AwardedPoints: awarded, Correct: &c}
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// decodeBool 同时接受 JSON 布尔值和 "true"/"false" 字符串。
func decodeBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	switch strings.ToLower(strings.TrimSpace(decodeString(raw))) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
