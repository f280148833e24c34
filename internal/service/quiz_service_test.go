package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/util"
)

func TestCreateQuiz_SnapshotsInitialVersion(t *testing.T) {
	f, _ := newFixture(t)
	quiz := f.createQuiz(t, 70, 3, objectiveQuestions(t))

	if quiz.PassingScorePercent != 70 || quiz.MaxAttempts != 3 {
		t.Fatalf("quiz = %d%%/%d attempts, want 70%%/3", quiz.PassingScorePercent, quiz.MaxAttempts)
	}
	if quiz.CurrentVersion == 0 {
		t.Fatal("CurrentVersion not set after create")
	}

	versions, err := f.quizzes.GetVersions(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 || versions[0].VersionNumber != 1 {
		t.Fatalf("versions = %d, want single version 1", len(versions))
	}

	var snap model.QuizSnapshot
	if err := json.Unmarshal([]byte(versions[0].Content), &snap); err != nil {
		t.Fatalf("snapshot decode: %v", err)
	}
	if len(snap.Questions) != 3 {
		t.Fatalf("snapshot questions = %d, want 3", len(snap.Questions))
	}
	if snap.Questions[0].Position != 1 || snap.Questions[2].Position != 3 {
		t.Fatal("snapshot questions out of order")
	}
}

func TestCreateQuiz_RejectsInvalidQuestion(t *testing.T) {
	f, _ := newFixture(t)

	cases := []struct {
		name     string
		question QuestionRequest
	}{
		{
			name: "correct option missing from options",
			question: QuestionRequest{
				Type: model.QuestionMultipleChoice, Text: "q", Points: 5,
				Payload: mcPayload(t, []string{"a", "b"}, "c"),
			},
		},
		{
			name: "single option",
			question: QuestionRequest{
				Type: model.QuestionMultipleChoice, Text: "q", Points: 5,
				Payload: mcPayload(t, []string{"a"}, "a"),
			},
		},
		{
			name: "zero points",
			question: QuestionRequest{
				Type: model.QuestionTrueFalse, Text: "q", Points: 0,
				Payload: json.RawMessage(`{"correctAnswer":true}`),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.quizzes.CreateQuiz(f.instructor.ID, QuizCreateRequest{
				CourseID:  f.course.ID,
				Title:     "Bad quiz",
				Questions: []QuestionRequest{tc.question},
			})
			if err == nil {
				t.Fatal("invalid question accepted")
			}
		})
	}
}

func TestUpdateQuiz_CreatesNewVersion(t *testing.T) {
	f, _ := newFixture(t)
	quiz := f.createQuiz(t, 60, 0, objectiveQuestions(t))
	firstVersion := quiz.CurrentVersion

	updated, err := f.quizzes.UpdateQuiz(f.instructor.ID, quiz.ID, QuizCreateRequest{
		CourseID:            f.course.ID,
		Title:               "Unit quiz v2",
		PassingScorePercent: 80,
		Questions: []QuestionRequest{
			{Type: model.QuestionTrueFalse, Text: "Only question", Points: 10,
				Payload: json.RawMessage(`{"correctAnswer":false}`)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Unit quiz v2" || updated.PassingScorePercent != 80 {
		t.Fatalf("updated quiz = %q/%d%%, want v2 title and 80%%", updated.Title, updated.PassingScorePercent)
	}
	if updated.CurrentVersion == firstVersion {
		t.Fatal("CurrentVersion unchanged after edit")
	}

	versions, err := f.quizzes.GetVersions(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 || versions[0].VersionNumber != 2 {
		t.Fatalf("versions = %d, latest %d, want 2 versions with latest 2", len(versions), versions[0].VersionNumber)
	}

	ids := questionIDs(t, f.db, quiz.ID)
	if len(ids) != 1 {
		t.Fatalf("live questions = %d, want 1 after edit", len(ids))
	}
}

func TestRollbackToVersion_RestoresSnapshot(t *testing.T) {
	f, _ := newFixture(t)
	quiz := f.createQuiz(t, 60, 0, objectiveQuestions(t))

	versions, err := f.quizzes.GetVersions(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	v1 := versions[0]

	if _, err := f.quizzes.UpdateQuiz(f.instructor.ID, quiz.ID, QuizCreateRequest{
		CourseID: f.course.ID,
		Title:    "Stripped down",
		Questions: []QuestionRequest{
			{Type: model.QuestionTrueFalse, Text: "Only question", Points: 10,
				Payload: json.RawMessage(`{"correctAnswer":true}`)},
		},
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.quizzes.RollbackToVersion(f.instructor.ID, quiz.ID, v1.ID); err != nil {
		t.Fatal(err)
	}

	restored, questions, err := f.quizzes.GetQuiz(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Title != "Unit quiz" {
		t.Fatalf("Title = %q, want original restored", restored.Title)
	}
	if len(questions) != 3 {
		t.Fatalf("questions = %d, want original 3 restored", len(questions))
	}

	versions, err = f.quizzes.GetVersions(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 3 || versions[0].VersionNumber != 3 {
		t.Fatalf("versions = %d, latest %d, want 3 with rollback as version 3", len(versions), versions[0].VersionNumber)
	}

	// 回滚版本必须属于本测验
	if err := f.quizzes.RollbackToVersion(f.instructor.ID, quiz.ID+99, v1.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("cross-quiz rollback err = %v, want ErrQuizNotFound", err)
	}
}

func TestGetQuizForStudent_HidesAnswers(t *testing.T) {
	f, _ := newFixture(t)
	quiz := f.createQuiz(t, 60, 0, objectiveQuestions(t))

	view, err := f.quizzes.GetQuizForStudent(quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(view.Questions))
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatal(err)
	}
	body := strings.ToLower(string(raw))
	for _, leak := range []string{"correctoption", "correctanswer", "mitochondria"} {
		if strings.Contains(body, leak) {
			t.Fatalf("student view leaks %q: %s", leak, raw)
		}
	}

	var mc *StudentQuestionView
	for i := range view.Questions {
		if view.Questions[i].Type == model.QuestionMultipleChoice {
			mc = &view.Questions[i]
		}
	}
	if mc == nil || len(mc.Options) != 2 {
		t.Fatal("multiple choice question must keep its options")
	}
}

func TestGetQuizForStudent_UnpublishedHidden(t *testing.T) {
	f, _ := newFixture(t)
	draft, err := f.quizzes.CreateQuiz(f.instructor.ID, QuizCreateRequest{
		CourseID:  f.course.ID,
		Title:     "Draft",
		Questions: objectiveQuestions(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.quizzes.GetQuizForStudent(draft.ID); !errors.Is(err, util.ErrQuizNotPublished) {
		t.Fatalf("err = %v, want ErrQuizNotPublished", err)
	}
	if _, err := f.quizzes.GetQuizForStudent(draft.ID + 99); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}
}

func TestProcessScheduledPublishes(t *testing.T) {
	f, _ := newFixture(t)
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due, err := f.quizzes.CreateQuiz(f.instructor.ID, QuizCreateRequest{
		CourseID: f.course.ID, Title: "Due quiz",
		ScheduledPublishAt: &past,
		Questions:          objectiveQuestions(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	notDue, err := f.quizzes.CreateQuiz(f.instructor.ID, QuizCreateRequest{
		CourseID: f.course.ID, Title: "Future quiz",
		ScheduledPublishAt: &future,
		Questions:          objectiveQuestions(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.quizzes.ProcessScheduledPublishes(); err != nil {
		t.Fatal(err)
	}

	published, _, err := f.quizzes.GetQuiz(due.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !published.IsPublished || published.PublishedAt == nil || published.ScheduledPublishAt != nil {
		t.Fatal("due quiz not published by scheduler")
	}

	still, _, err := f.quizzes.GetQuiz(notDue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if still.IsPublished {
		t.Fatal("future quiz published early")
	}
}

