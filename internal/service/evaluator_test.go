package service

import (
	"encoding/json"
	"errors"
	"testing"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/util"
)

func boolPtr(b bool) *bool { return &b }

func mcQuestion(t *testing.T, points int, options []string, correct string) *model.Question {
	t.Helper()
	payload, err := json.Marshal(model.MultipleChoicePayload{Options: options, CorrectOption: correct})
	if err != nil {
		t.Fatal(err)
	}
	return &model.Question{Type: model.QuestionMultipleChoice, Points: points, Payload: string(payload)}
}

func assertEvaluation(t *testing.T, got Evaluation, awarded int, correct *bool, manual bool) {
	t.Helper()
	if got.NeedsManual != manual {
		t.Fatalf("NeedsManual = %v, want %v", got.NeedsManual, manual)
	}
	if got.AwardedPoints != awarded {
		t.Fatalf("AwardedPoints = %d, want %d", got.AwardedPoints, awarded)
	}
	if (got.Correct == nil) != (correct == nil) {
		t.Fatalf("Correct = %v, want %v", got.Correct, correct)
	}
	if got.Correct != nil && *got.Correct != *correct {
		t.Fatalf("Correct = %v, want %v", *got.Correct, *correct)
	}
}

func TestEvaluateQuestion_MultipleChoice(t *testing.T) {
	q := mcQuestion(t, 5, []string{"red", "green", "blue"}, "green")

	tests := []struct {
		name     string
		response string
		awarded  int
		correct  *bool
	}{
		{name: "correct option", response: `"green"`, awarded: 5, correct: boolPtr(true)},
		{name: "wrong option", response: `"red"`, awarded: 0, correct: boolPtr(false)},
		{name: "option not in list", response: `"purple"`, awarded: 0, correct: boolPtr(false)},
		{name: "unanswered", response: ``, awarded: 0, correct: boolPtr(false)},
		{name: "null response", response: `null`, awarded: 0, correct: boolPtr(false)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateQuestion(q, json.RawMessage(tc.response))
			if err != nil {
				t.Fatal(err)
			}
			assertEvaluation(t, got, tc.awarded, tc.correct, false)
		})
	}
}

func TestEvaluateQuestion_TrueFalse(t *testing.T) {
	payload, _ := json.Marshal(model.TrueFalsePayload{CorrectAnswer: true})
	q := &model.Question{Type: model.QuestionTrueFalse, Points: 2, Payload: string(payload)}

	tests := []struct {
		name     string
		response string
		awarded  int
		correct  *bool
	}{
		{name: "bool true", response: `true`, awarded: 2, correct: boolPtr(true)},
		{name: "bool false", response: `false`, awarded: 0, correct: boolPtr(false)},
		{name: "string true", response: `"true"`, awarded: 2, correct: boolPtr(true)},
		{name: "string false", response: `"false"`, awarded: 0, correct: boolPtr(false)},
		{name: "garbage string", response: `"yes"`, awarded: 0, correct: boolPtr(false)},
		{name: "unanswered", response: ``, awarded: 0, correct: boolPtr(false)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateQuestion(q, json.RawMessage(tc.response))
			if err != nil {
				t.Fatal(err)
			}
			assertEvaluation(t, got, tc.awarded, tc.correct, false)
		})
	}
}

func TestEvaluateQuestion_FillBlank(t *testing.T) {
	payload, _ := json.Marshal(model.FillBlankPayload{CorrectAnswer: "Paris"})
	q := &model.Question{Type: model.QuestionFillBlank, Points: 3, Payload: string(payload)}

	tests := []struct {
		name     string
		response string
		awarded  int
		correct  *bool
	}{
		{name: "exact match", response: `"Paris"`, awarded: 3, correct: boolPtr(true)},
		{name: "case insensitive", response: `"PARIS"`, awarded: 3, correct: boolPtr(true)},
		{name: "surrounding whitespace", response: `"  paris  "`, awarded: 3, correct: boolPtr(true)},
		{name: "wrong answer", response: `"London"`, awarded: 0, correct: boolPtr(false)},
		{name: "blank answer", response: `"   "`, awarded: 0, correct: boolPtr(false)},
		{name: "unanswered", response: ``, awarded: 0, correct: boolPtr(false)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateQuestion(q, json.RawMessage(tc.response))
			if err != nil {
				t.Fatal(err)
			}
			assertEvaluation(t, got, tc.awarded, tc.correct, false)
		})
	}
}

func TestEvaluateQuestion_Essay(t *testing.T) {
	q := &model.Question{Type: model.QuestionEssay, Points: 10, Payload: "{}"}

	got, err := EvaluateQuestion(q, json.RawMessage(`"my long answer"`))
	if err != nil {
		t.Fatal(err)
	}
	assertEvaluation(t, got, 0, nil, true)

	// 空白作答同样进批改队列，让教师能看到这次提交
	got, err = EvaluateQuestion(q, json.RawMessage(`"   "`))
	if err != nil {
		t.Fatal(err)
	}
	assertEvaluation(t, got, 0, nil, true)

	got, err = EvaluateQuestion(q, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertEvaluation(t, got, 0, nil, true)
}

func TestEvaluateQuestion_UnsupportedType(t *testing.T) {
	q := &model.Question{Type: "matching", Points: 5, Payload: "{}"}
	_, err := EvaluateQuestion(q, json.RawMessage(`"whatever"`))
	if !errors.Is(err, util.ErrUnsupportedQuestionType) {
		t.Fatalf("err = %v, want ErrUnsupportedQuestionType", err)
	}
}
