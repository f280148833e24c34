package service

import (
	"testing"

	"quiz_grading_backend/internal/model"
)

func autoRes(awarded, max int) model.AttemptResult {
	correct := awarded == max
	return model.AttemptResult{
		AwardedPoints: awarded,
		MaxPoints:     max,
		Correct:       &correct,
		GradingStatus: model.GradingAuto,
	}
}

func pendingRes(max int) model.AttemptResult {
	return model.AttemptResult{MaxPoints: max, GradingStatus: model.GradingPending}
}

func TestScoreAttempt_PassBoundary(t *testing.T) {
	tests := []struct {
		name           string
		results        []model.AttemptResult
		passingPercent int
		score          int
		total          int
		passed         bool
	}{
		{
			// 2/3 = 66.66%，取整到 67 也不能让 67% 及格线通过
			name:           "unrounded ratio below threshold fails",
			results:        []model.AttemptResult{autoRes(1, 1), autoRes(1, 1), autoRes(0, 1)},
			passingPercent: 67,
			score:          2, total: 3, passed: false,
		},
		{
			name:           "unrounded ratio at threshold passes",
			results:        []model.AttemptResult{autoRes(1, 1), autoRes(1, 1), autoRes(0, 1)},
			passingPercent: 66,
			score:          2, total: 3, passed: true,
		},
		{
			name:           "exact boundary passes",
			results:        []model.AttemptResult{autoRes(3, 5), autoRes(0, 0)},
			passingPercent: 60,
			score:          3, total: 5, passed: true,
		},
		{
			name:           "full score passes",
			results:        []model.AttemptResult{autoRes(5, 5)},
			passingPercent: 100,
			score:          5, total: 5, passed: true,
		},
		{
			name:           "zero score fails",
			results:        []model.AttemptResult{autoRes(0, 5)},
			passingPercent: 1,
			score:          0, total: 5, passed: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := ScoreAttempt(tc.results, tc.passingPercent)
			if v.Score != tc.score || v.TotalPoints != tc.total {
				t.Fatalf("score = %d/%d, want %d/%d", v.Score, v.TotalPoints, tc.score, tc.total)
			}
			if v.Passed == nil {
				t.Fatal("Passed = nil, want decision")
			}
			if *v.Passed != tc.passed {
				t.Fatalf("Passed = %v, want %v", *v.Passed, tc.passed)
			}
		})
	}
}

func TestScoreAttempt_ZeroTotalNeverPasses(t *testing.T) {
	v := ScoreAttempt([]model.AttemptResult{autoRes(0, 0)}, 0)
	if v.Passed == nil {
		t.Fatal("Passed = nil, want decision")
	}
	if *v.Passed {
		t.Fatal("zero-point quiz must never pass")
	}
}

func TestScoreAttempt_PendingLeavesVerdictOpen(t *testing.T) {
	v := ScoreAttempt([]model.AttemptResult{autoRes(5, 5), pendingRes(10)}, 60)
	if v.Passed != nil {
		t.Fatalf("Passed = %v, want nil while pending", *v.Passed)
	}
	if v.Pending != 1 {
		t.Fatalf("Pending = %d, want 1", v.Pending)
	}
	if v.TotalPoints != 15 {
		t.Fatalf("TotalPoints = %d, want 15", v.TotalPoints)
	}
	// 已定分的部分照常累计，但不对外当成成绩
	if v.Score != 5 {
		t.Fatalf("Score = %d, want 5", v.Score)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tc := range tests {
		if got := Percent(tc.score, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}

func TestApplyVerdict(t *testing.T) {
	attempt := &model.Attempt{}
	ApplyVerdict(attempt, ScoreAttempt([]model.AttemptResult{autoRes(5, 5), pendingRes(5)}, 60))
	if attempt.Status != model.AttemptAwaitingManual {
		t.Fatalf("Status = %s, want awaiting_manual", attempt.Status)
	}
	if attempt.Passed != nil {
		t.Fatal("Passed must stay nil while awaiting manual grades")
	}

	ApplyVerdict(attempt, ScoreAttempt([]model.AttemptResult{autoRes(5, 5), autoRes(3, 5)}, 60))
	if attempt.Status != model.AttemptFinal {
		t.Fatalf("Status = %s, want final", attempt.Status)
	}
	if attempt.Passed == nil || !*attempt.Passed {
		t.Fatal("Passed = false or nil, want true")
	}
}
