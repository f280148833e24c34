package service

import (
	"context"
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

// GradingService 承载人工批改：待批队列与给分。
// 队列是按需从结果行投影出来的视图，没有独立的队列表。
type GradingService struct {
	AttemptRepo    *repository.AttemptRepository
	QuizRepo       *repository.QuizRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Notifier       CertificateNotifier
	DB             *gorm.DB
}

func NewGradingService(
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	notifier CertificateNotifier,
	db *gorm.DB,
) *GradingService {
	return &GradingService{
		AttemptRepo:    attemptRepo,
		QuizRepo:       quizRepo,
		EnrollmentRepo: enrollmentRepo,
		Notifier:       notifier,
		DB:             db,
	}
}

type ManualGradeRequest struct {
	AwardedPoints int    `json:"awardedPoints"`
	Feedback      string `json:"feedback"`
}

// ListPending 返回讲师可见的待批改题。管理员看到全部，
// 讲师只看到自己名下课程的测验。
func (s *GradingService) ListPending(graderID uint, role model.UserRole, page, limit int) ([]repository.PendingItem, int64, error) {
	var quizIDs []uint
	if role != model.RoleAdmin {
		courseIDs, err := s.EnrollmentRepo.CourseIDsForInstructor(graderID)
		if err != nil {
			return nil, 0, util.ErrPersistenceFailure
		}
		if len(courseIDs) == 0 {
			return []repository.PendingItem{}, 0, nil
		}
		quizIDs, err = s.AttemptRepo.QuizIDsForCourses(courseIDs)
		if err != nil {
			return nil, 0, util.ErrPersistenceFailure
		}
		if len(quizIDs) == 0 {
			return []repository.PendingItem{}, 0, nil
		}
	}

	items, total, err := s.AttemptRepo.FindPendingItems(quizIDs, page, limit)
	if err != nil {
		return nil, 0, util.ErrPersistenceFailure
	}
	return items, total, nil
}

// RecordManualGrade 给一道待批改的题定分，随后重算整次作答。
// 分数越界返回 ErrInvalidGrade；该题不存在或已被批过返回
// ErrUnknownPendingItem。两个讲师同时给分时条件更新保证只有一个生效。
func (s *GradingService) RecordManualGrade(ctx context.Context, graderID uint, role model.UserRole, attemptID, questionID uint, req ManualGradeRequest) (*AttemptView, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnknownPendingItem
		}
		return nil, util.ErrPersistenceFailure
	}

	if role != model.RoleAdmin {
		if err := s.checkGraderScope(graderID, attempt.QuizID); err != nil {
			return nil, err
		}
	}

	var target *model.AttemptResult
	for i := range attempt.Results {
		if attempt.Results[i].QuestionID == questionID {
			target = &attempt.Results[i]
			break
		}
	}
	if target == nil || !target.Pending() {
		return nil, util.ErrUnknownPendingItem
	}

	if req.AwardedPoints < 0 || req.AwardedPoints > target.MaxPoints {
		return nil, util.ErrInvalidGrade
	}

	// 满分视为答对，部分分与零分视为答错
	correct := req.AwardedPoints == target.MaxPoints
	claimed, err := s.AttemptRepo.ClaimPendingResult(attemptID, questionID, req.AwardedPoints, correct, graderID, req.Feedback)
	if err != nil {
		return nil, util.ErrPersistenceFailure
	}
	if !claimed {
		// 另一个批改请求抢先定了分
		return nil, util.ErrUnknownPendingItem
	}
	monitoring.ManualGrades.Inc()

	return s.rescore(ctx, attemptID)
}

// rescore 重算作答总分，最后一道题批完时定稿并通知证书服务。
func (s *GradingService) rescore(ctx context.Context, attemptID uint) (*AttemptView, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, util.ErrPersistenceFailure
	}

	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if err != nil {
		return nil, util.ErrPersistenceFailure
	}

	verdict := ScoreAttempt(attempt.Results, quiz.PassingScorePercent)
	wasFinal := attempt.Status == model.AttemptFinal
	ApplyVerdict(attempt, verdict)

	if attempt.Status == model.AttemptFinal && attempt.FinalizedAt == nil {
		now := time.Now()
		attempt.FinalizedAt = &now
	}

	if err := s.AttemptRepo.UpdateVerdict(attempt); err != nil {
		logger.Log.Error("update attempt verdict failed",
			zap.Uint("attemptId", attemptID),
			zap.Error(err))
		return nil, util.ErrPersistenceFailure
	}

	if attempt.Status == model.AttemptFinal && !wasFinal {
		notifyFinalized(ctx, s.Notifier, quiz, attempt)
	}

	view := buildAttemptView(attempt)
	return view, nil
}

func (s *GradingService) checkGraderScope(graderID, quizID uint) error {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return util.ErrPersistenceFailure
	}
	if quiz.CreatorID == graderID {
		return nil
	}
	courseIDs, err := s.EnrollmentRepo.CourseIDsForInstructor(graderID)
	if err != nil {
		return util.ErrPersistenceFailure
	}
	for _, id := range courseIDs {
		if id == quiz.CourseID {
			return nil
		}
	}
	return util.ErrPermissionDenied
}
