package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/util"
)

func submitWithEssay(t *testing.T, f *fixture) (*model.Quiz, *AttemptView, uint) {
	t.Helper()
	questions := []QuestionRequest{
		{Type: model.QuestionMultipleChoice, Text: "Pick green", Points: 5, Payload: mcPayload(t, []string{"red", "green"}, "green")},
		{Type: model.QuestionEssay, Text: "Explain joins", Points: 5, Payload: json.RawMessage(`{}`)},
	}
	quiz := f.createQuiz(t, 60, 0, questions)
	ids := questionIDs(t, f.db, quiz.ID)

	view, err := f.attempts.SubmitAttempt(context.Background(), f.student.ID, quiz.ID, SubmitAttemptRequest{
		EnrollmentID: f.enrollment.ID,
		Answers: []SubmitAnswer{
			{QuestionID: ids[0], Response: json.RawMessage(`"green"`)},
			{QuestionID: ids[1], Response: json.RawMessage(`"a join combines rows"`)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return quiz, view, ids[1]
}

func TestListPending_ShowsSubmittedEssay(t *testing.T) {
	f, _ := newFixture(t)
	_, view, essayID := submitWithEssay(t, f)

	items, total, err := f.grading.ListPending(f.instructor.ID, model.RoleInstructor, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("pending = %d items, total %d, want 1/1", len(items), total)
	}
	item := items[0]
	if item.AttemptID != view.ID || item.QuestionID != essayID {
		t.Fatalf("item = attempt %d question %d, want attempt %d question %d",
			item.AttemptID, item.QuestionID, view.ID, essayID)
	}
	if item.StudentName != "Ada" {
		t.Fatalf("StudentName = %q, want Ada", item.StudentName)
	}
	if item.MaxPoints != 5 {
		t.Fatalf("MaxPoints = %d, want 5", item.MaxPoints)
	}
}

func TestListPending_ScopedToInstructorCourses(t *testing.T) {
	f, _ := newFixture(t)
	submitWithEssay(t, f)

	other := &model.User{Name: "Linus", Email: "linus@example.com", Password: "x", Role: model.RoleInstructor}
	if err := f.db.Create(other).Error; err != nil {
		t.Fatal(err)
	}

	items, total, err := f.grading.ListPending(other.ID, model.RoleInstructor, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatal("instructor without courses must not see other instructors' queue")
	}

	// 分组指派的讲师可以批改
	section := &model.CourseSection{CourseID: f.course.ID, Name: "Section A", InstructorID: other.ID}
	if err := f.db.Create(section).Error; err != nil {
		t.Fatal(err)
	}
	_, total, err = f.grading.ListPending(other.ID, model.RoleInstructor, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("section instructor queue total = %d, want 1", total)
	}

	// 管理员看到全部
	admin := &model.User{Name: "Root", Email: "root@example.com", Password: "x", Role: model.RoleAdmin}
	if err := f.db.Create(admin).Error; err != nil {
		t.Fatal(err)
	}
	_, total, err = f.grading.ListPending(admin.ID, model.RoleAdmin, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("admin queue total = %d, want 1", total)
	}
}

func TestRecordManualGrade_FinalizesAndNotifies(t *testing.T) {
	f, notifier := newFixture(t)
	_, view, essayID := submitWithEssay(t, f)

	graded, err := f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, essayID, ManualGradeRequest{AwardedPoints: 4, Feedback: "solid"})
	if err != nil {
		t.Fatal(err)
	}

	if graded.Status != model.AttemptFinal {
		t.Fatalf("Status = %s, want final", graded.Status)
	}
	if graded.Score == nil || *graded.Score != 9 {
		t.Fatalf("Score = %v, want 9", graded.Score)
	}
	if graded.Passed == nil || !*graded.Passed {
		t.Fatal("Passed = false or nil, want true at 9/10")
	}
	if len(notifier.events) != 1 {
		t.Fatalf("finalized events = %d, want 1", len(notifier.events))
	}

	// 批改后条目离开队列
	_, total, err := f.grading.ListPending(f.instructor.ID, model.RoleInstructor, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("queue total = %d after grading, want 0", total)
	}

	// 部分分记为答错，评语保留
	var result model.AttemptResult
	if err := f.db.Where("attempt_id = ? AND question_id = ?", view.ID, essayID).First(&result).Error; err != nil {
		t.Fatal(err)
	}
	if result.GradingStatus != model.GradingGraded {
		t.Fatalf("GradingStatus = %s, want graded", result.GradingStatus)
	}
	if result.Correct == nil || *result.Correct {
		t.Fatal("partial credit must record correct = false")
	}
	if result.Feedback != "solid" {
		t.Fatalf("Feedback = %q, want solid", result.Feedback)
	}
	if result.GraderID == nil || *result.GraderID != f.instructor.ID {
		t.Fatalf("GraderID = %v, want %d", result.GraderID, f.instructor.ID)
	}
}

func TestRecordManualGrade_InvalidGrade(t *testing.T) {
	f, _ := newFixture(t)
	_, view, essayID := submitWithEssay(t, f)

	for _, points := range []int{-1, 6} {
		_, err := f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
			view.ID, essayID, ManualGradeRequest{AwardedPoints: points})
		if !errors.Is(err, util.ErrInvalidGrade) {
			t.Fatalf("points %d: err = %v, want ErrInvalidGrade", points, err)
		}
	}

	// 被拒的评分不动状态
	var result model.AttemptResult
	if err := f.db.Where("attempt_id = ? AND question_id = ?", view.ID, essayID).First(&result).Error; err != nil {
		t.Fatal(err)
	}
	if result.GradingStatus != model.GradingPending {
		t.Fatalf("GradingStatus = %s, want pending after rejected grades", result.GradingStatus)
	}
}

func TestRecordManualGrade_UnknownPendingItem(t *testing.T) {
	f, _ := newFixture(t)
	_, view, essayID := submitWithEssay(t, f)

	// 不存在的题
	_, err := f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, essayID+999, ManualGradeRequest{AwardedPoints: 3})
	if !errors.Is(err, util.ErrUnknownPendingItem) {
		t.Fatalf("err = %v, want ErrUnknownPendingItem", err)
	}

	// 已经自动判分的客观题
	ids := questionIDs(t, f.db, view.QuizID)
	_, err = f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, ids[0], ManualGradeRequest{AwardedPoints: 3})
	if !errors.Is(err, util.ErrUnknownPendingItem) {
		t.Fatalf("err = %v, want ErrUnknownPendingItem", err)
	}

	// 第二次批改同一道题
	if _, err := f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, essayID, ManualGradeRequest{AwardedPoints: 5}); err != nil {
		t.Fatal(err)
	}
	_, err = f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, essayID, ManualGradeRequest{AwardedPoints: 2})
	if !errors.Is(err, util.ErrUnknownPendingItem) {
		t.Fatalf("regrade err = %v, want ErrUnknownPendingItem", err)
	}
}

func TestRecordManualGrade_ForeignInstructorForbidden(t *testing.T) {
	f, _ := newFixture(t)
	_, view, essayID := submitWithEssay(t, f)

	other := &model.User{Name: "Linus", Email: "linus@example.com", Password: "x", Role: model.RoleInstructor}
	if err := f.db.Create(other).Error; err != nil {
		t.Fatal(err)
	}

	_, err := f.grading.RecordManualGrade(context.Background(), other.ID, model.RoleInstructor,
		view.ID, essayID, ManualGradeRequest{AwardedPoints: 3})
	if !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestAttemptView_ExplanationOnlyAfterFinalize(t *testing.T) {
	f, _ := newFixture(t)
	questions := []QuestionRequest{
		{Type: model.QuestionMultipleChoice, Text: "Pick green", Points: 5,
			Payload: mcPayload(t, []string{"red", "green"}, "green"), Explanation: "green absorbs least light"},
		{Type: model.QuestionEssay, Text: "Explain joins", Points: 5,
			Payload: json.RawMessage(`{}`), Explanation: "joins combine rows across tables"},
	}
	quiz := f.createQuiz(t, 60, 0, questions)
	ids := questionIDs(t, f.db, quiz.ID)

	view, err := f.attempts.SubmitAttempt(context.Background(), f.student.ID, quiz.ID, SubmitAttemptRequest{
		EnrollmentID: f.enrollment.ID,
		Answers: []SubmitAnswer{
			{QuestionID: ids[0], Response: json.RawMessage(`"green"`)},
			{QuestionID: ids[1], Response: json.RawMessage(`"a join combines rows"`)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 出分前解析一律不返回
	for _, r := range view.Results {
		if r.Explanation != "" {
			t.Fatalf("question %d leaked explanation before finalization", r.QuestionID)
		}
	}

	graded, err := f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, ids[1], ManualGradeRequest{AwardedPoints: 5})
	if err != nil {
		t.Fatal(err)
	}
	if graded.Status != model.AttemptFinal {
		t.Fatalf("Status = %s, want final", graded.Status)
	}

	want := map[uint]string{
		ids[0]: "green absorbs least light",
		ids[1]: "joins combine rows across tables",
	}
	for _, r := range graded.Results {
		if r.Explanation != want[r.QuestionID] {
			t.Fatalf("question %d explanation = %q, want %q", r.QuestionID, r.Explanation, want[r.QuestionID])
		}
	}
}

func TestRecordManualGrade_FullMarksRecordedCorrect(t *testing.T) {
	f, _ := newFixture(t)
	_, view, essayID := submitWithEssay(t, f)

	if _, err := f.grading.RecordManualGrade(context.Background(), f.instructor.ID, model.RoleInstructor,
		view.ID, essayID, ManualGradeRequest{AwardedPoints: 5}); err != nil {
		t.Fatal(err)
	}

	var result model.AttemptResult
	if err := f.db.Where("attempt_id = ? AND question_id = ?", view.ID, essayID).First(&result).Error; err != nil {
		t.Fatal(err)
	}
	if result.Correct == nil || !*result.Correct {
		t.Fatal("full marks must record correct = true")
	}
}
