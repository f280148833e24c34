package service

import "quiz_grading_backend/internal/model"

// Verdict 是整次作答的汇总结论。仍有待批改题时 Passed 为 nil，
// Score 只含已定分的部分，不得当成最终成绩展示。
type Verdict struct {
	Score       int   `json:"score"`
	TotalPoints int   `json:"totalPoints"`
	Passed      *bool `json:"passed"`
	Pending     int   `json:"pending"`
}

// ScoreAttempt 把各题结果汇总成总分与通过判定。
// 通过判定用整数比较 score*100 >= passingPercent*totalPoints，
// 避免浮点舍入把边界成绩判错；零总分的测验永远不通过。
func ScoreAttempt(results []model.AttemptResult, passingPercent int) Verdict {
	v := Verdict{}
	for _, r := range results {
		v.TotalPoints += r.MaxPoints
		if r.Pending() {
			v.Pending++
			continue
		}
		v.Score += r.AwardedPoints
	}

	if v.Pending > 0 {
		return v
	}

	passed := v.TotalPoints > 0 && v.Score*100 >= passingPercent*v.TotalPoints
	v.Passed = &passed
	return v
}

// Percent 是展示用的取整百分比，四舍五入。通过判定不经过它。
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}

// ApplyVerdict 把结论写回 attempt 结构，定稿状态由调用方落库。
func ApplyVerdict(attempt *model.Attempt, v Verdict) {
	attempt.Score = v.Score
	attempt.TotalPoints = v.TotalPoints
	attempt.Passed = v.Passed
	if v.Pending > 0 {
		attempt.Status = model.AttemptAwaitingManual
	} else {
		attempt.Status = model.AttemptFinal
	}
}
