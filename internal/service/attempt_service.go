package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/repository"
	"quiz_grading_backend/internal/util"
	"quiz_grading_backend/pkg/logger"
	"quiz_grading_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AttemptService struct {
	AttemptRepo    *repository.AttemptRepository
	QuizRepo       *repository.QuizRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Idempotency    *IdempotencyGuard
	Notifier       CertificateNotifier
	DB             *gorm.DB
}

func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	idempotency *IdempotencyGuard,
	notifier CertificateNotifier,
	db *gorm.DB,
) *AttemptService {
	return &AttemptService{
		AttemptRepo:    attemptRepo,
		QuizRepo:       quizRepo,
		EnrollmentRepo: enrollmentRepo,
		Idempotency:    idempotency,
		Notifier:       notifier,
		DB:             db,
	}
}

type SubmitAnswer struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Response   json.RawMessage `json:"response"`
}

type SubmitAttemptRequest struct {
	EnrollmentID   uint           `json:"enrollmentId" binding:"required"`
	IdempotencyKey string         `json:"idempotencyKey"`
	TimeSpent      int            `json:"timeSpent"`
	Answers        []SubmitAnswer `json:"answers"`
}

// QuestionResultView 是单题结果的对外视图。待批改的题不携带分数，
// 占位的零分不允许泄漏给学生。
type QuestionResultView struct {
	QuestionID    uint                `json:"questionId"`
	MaxPoints     int                 `json:"maxPoints"`
	GradingStatus model.GradingStatus `json:"gradingStatus"`
	AwardedPoints *int                `json:"awardedPoints,omitempty"`
	Correct       *bool               `json:"correct,omitempty"`
	Feedback      string              `json:"feedback,omitempty"`
	Explanation   string              `json:"explanation,omitempty"` // 仅在整次作答定稿后返回
}

// AttemptView 是一次作答的对外视图。未定稿时 Score 与 Passed 为空。
type AttemptView struct {
	ID            uint                 `json:"id"`
	QuizID        uint                 `json:"quizId"`
	EnrollmentID  uint                 `json:"enrollmentId"`
	AttemptNumber int                  `json:"attemptNumber"`
	Status        model.AttemptStatus  `json:"status"`
	SubmittedAt   time.Time            `json:"submittedAt"`
	FinalizedAt   *time.Time           `json:"finalizedAt,omitempty"`
	TotalPoints   int                  `json:"totalPoints"`
	Score         *int                 `json:"score,omitempty"`
	Percent       *int                 `json:"percent,omitempty"`
	Passed        *bool                `json:"passed,omitempty"`
	PendingCount  int                  `json:"pendingCount"`
	Results       []QuestionResultView `json:"results"`
}

// SubmitAttempt 走完整条提交流水线：校验、评分、落库、定稿或挂起。
func (s *AttemptService) SubmitAttempt(ctx context.Context, userID, quizID uint, req SubmitAttemptRequest) (*AttemptView, error) {
	// 幂等键先查 Redis，再查数据库，命中直接返回首次结果
	if req.IdempotencyKey != "" {
		if !s.Idempotency.Claim(ctx, req.IdempotencyKey) {
			if existing, err := s.AttemptRepo.FindByIdempotencyKey(req.IdempotencyKey); err == nil {
				return s.buildView(existing), nil
			}
			return nil, util.ErrDuplicateSubmission
		}
	}

	view, err := s.submit(ctx, userID, quizID, req)
	if err != nil && req.IdempotencyKey != "" && !errors.Is(err, util.ErrDuplicateSubmission) {
		// 未落库的失败要释放幂等键，否则客户端无法重试
		s.Idempotency.Release(ctx, req.IdempotencyKey)
	}
	return view, err
}

func (s *AttemptService) submit(ctx context.Context, userID, quizID uint, req SubmitAttemptRequest) (*AttemptView, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, util.ErrPersistenceFailure
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotPublished
	}

	enrollment, err := s.EnrollmentRepo.FindByID(req.EnrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, util.ErrPersistenceFailure
	}
	if enrollment.UserID != userID || enrollment.CourseID != quiz.CourseID {
		return nil, util.ErrEnrollmentNotFound
	}
	if !enrollment.IsActive() {
		monitoring.RejectedSubmissions.WithLabelValues("enrollment_not_active").Inc()
		return nil, util.ErrEnrollmentNotActive
	}

	// 次数上限先做一次廉价预检，明显超限的提交不进评分流程。
	// 并发下的权威检查仍在 CreateWithRetry 的事务里。
	if quiz.MaxAttempts > 0 {
		count, err := s.AttemptRepo.CountByQuizAndEnrollment(quiz.ID, enrollment.ID)
		if err != nil {
			return nil, util.ErrPersistenceFailure
		}
		if count >= int64(quiz.MaxAttempts) {
			monitoring.RejectedSubmissions.WithLabelValues("attempt_limit_exceeded").Inc()
			return nil, util.ErrAttemptLimitExceeded
		}
	}

	questions, versionID, err := s.questionsForGrading(quiz)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuizHasNoQuestions
	}

	answerByQuestion := make(map[uint]json.RawMessage, len(req.Answers))
	for _, a := range req.Answers {
		answerByQuestion[a.QuestionID] = a.Response
	}

	// 每道题都要有结果行，未作答的题按空作答评零分
	var answers []model.AttemptAnswer
	var results []model.AttemptResult
	for i := range questions {
		q := &questions[i]
		response := answerByQuestion[q.ID]

		eval, err := EvaluateQuestion(q, response)
		if err != nil {
			monitoring.RejectedSubmissions.WithLabelValues("unsupported_question_type").Inc()
			return nil, util.ErrUnsupportedQuestionType
		}

		if len(response) > 0 {
			answers = append(answers, model.AttemptAnswer{
				QuestionID: q.ID,
				Response:   string(response),
			})
		}

		result := model.AttemptResult{
			QuestionID:  q.ID,
			MaxPoints:   q.Points,
			Explanation: q.Explanation,
		}
		if eval.NeedsManual {
			result.GradingStatus = model.GradingPending
		} else {
			result.GradingStatus = model.GradingAuto
			result.AwardedPoints = eval.AwardedPoints
			result.Correct = eval.Correct
		}
		results = append(results, result)
	}

	verdict := ScoreAttempt(results, quiz.PassingScorePercent)

	now := time.Now()
	attempt := &model.Attempt{
		QuizID:        quiz.ID,
		EnrollmentID:  enrollment.ID,
		QuizVersionID: versionID,
		SubmittedAt:   now,
		TimeSpent:     req.TimeSpent,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		attempt.IdempotencyKey = &key
	}
	ApplyVerdict(attempt, verdict)
	if attempt.Status == model.AttemptFinal {
		attempt.FinalizedAt = &now
	}

	if err := s.AttemptRepo.CreateWithRetry(attempt, quiz.MaxAttempts, answers, results); err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptLimitExceeded):
			monitoring.RejectedSubmissions.WithLabelValues("attempt_limit_exceeded").Inc()
			return nil, err
		case errors.Is(err, util.ErrDuplicateSubmission):
			if existing, findErr := s.AttemptRepo.FindByIdempotencyKey(req.IdempotencyKey); findErr == nil {
				return s.buildView(existing), nil
			}
			return nil, err
		default:
			logger.Log.Error("persist attempt failed",
				zap.Uint("quizId", quizID),
				zap.Uint("enrollmentId", enrollment.ID),
				zap.Error(err))
			return nil, util.ErrPersistenceFailure
		}
	}

	if attempt.Status == model.AttemptFinal {
		monitoring.AttemptSubmissions.WithLabelValues("final").Inc()
		notifyFinalized(ctx, s.Notifier, quiz, attempt)
	} else {
		monitoring.AttemptSubmissions.WithLabelValues("awaiting_manual").Inc()
	}

	attempt.Results = results
	return s.buildView(attempt), nil
}

// questionsForGrading 优先用当前版本快照里的题目，保证历史评分稳定；
// 快照缺失时退回当前题目行。
func (s *AttemptService) questionsForGrading(quiz *model.Quiz) ([]model.Question, uint, error) {
	if quiz.CurrentVersion > 0 {
		v, err := s.QuizRepo.GetVersionByID(quiz.CurrentVersion)
		if err == nil {
			var snap model.QuizSnapshot
			if err := json.Unmarshal([]byte(v.Content), &snap); err == nil && len(snap.Questions) > 0 {
				return snap.Questions, v.ID, nil
			}
		}
	}
	questions, err := s.QuizRepo.GetQuestionsByQuiz(quiz.ID)
	if err != nil {
		return nil, 0, util.ErrPersistenceFailure
	}
	return questions, 0, nil
}

// GetAttempt 返回本人的作答视图，讲师与管理员可越过属主检查。
func (s *AttemptService) GetAttempt(userID uint, role model.UserRole, attemptID uint) (*AttemptView, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, util.ErrPersistenceFailure
	}
	if role == model.RoleStudent {
		enrollment, err := s.EnrollmentRepo.FindByID(attempt.EnrollmentID)
		if err != nil || enrollment.UserID != userID {
			return nil, util.ErrAttemptNotFound
		}
	}
	return s.buildView(attempt), nil
}

func (s *AttemptService) ListAttempts(userID uint, role model.UserRole, quizID, enrollmentID uint) ([]AttemptView, error) {
	if role == model.RoleStudent {
		enrollment, err := s.EnrollmentRepo.FindByID(enrollmentID)
		if err != nil || enrollment.UserID != userID {
			return nil, util.ErrEnrollmentNotFound
		}
	}
	attempts, err := s.AttemptRepo.ListByEnrollment(quizID, enrollmentID)
	if err != nil {
		return nil, util.ErrPersistenceFailure
	}
	views := make([]AttemptView, 0, len(attempts))
	for i := range attempts {
		results, err := s.AttemptRepo.GetResults(attempts[i].ID)
		if err != nil {
			return nil, util.ErrPersistenceFailure
		}
		attempts[i].Results = results
		views = append(views, *s.buildView(&attempts[i]))
	}
	return views, nil
}

func (s *AttemptService) buildView(attempt *model.Attempt) *AttemptView {
	return buildAttemptView(attempt)
}

// buildAttemptView 把作答映射成对外视图。挂起状态下总分与通过判定留空，
// 待批改的题只给出状态，不给出占位分数。
func buildAttemptView(attempt *model.Attempt) *AttemptView {
	view := &AttemptView{
		ID:            attempt.ID,
		QuizID:        attempt.QuizID,
		EnrollmentID:  attempt.EnrollmentID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		SubmittedAt:   attempt.SubmittedAt,
		FinalizedAt:   attempt.FinalizedAt,
		TotalPoints:   attempt.TotalPoints,
	}

	for _, r := range attempt.Results {
		rv := QuestionResultView{
			QuestionID:    r.QuestionID,
			MaxPoints:     r.MaxPoints,
			GradingStatus: r.GradingStatus,
			Feedback:      r.Feedback,
		}
		if !r.Pending() {
			awarded := r.AwardedPoints
			rv.AwardedPoints = &awarded
			rv.Correct = r.Correct
		} else {
			view.PendingCount++
		}
		if attempt.Status == model.AttemptFinal {
			rv.Explanation = r.Explanation
		}
		view.Results = append(view.Results, rv)
	}

	if attempt.Status == model.AttemptFinal {
		score := attempt.Score
		percent := Percent(attempt.Score, attempt.TotalPoints)
		view.Score = &score
		view.Percent = &percent
		view.Passed = attempt.Passed
	}
	return view
}
