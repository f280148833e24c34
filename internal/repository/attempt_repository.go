package repository

import (
	"strings"
	"time"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// PendingItem 是待批改队列的一行，由查询即时拼出，不落库。
type PendingItem struct {
	AttemptID     uint      `json:"attemptId"`
	QuestionID    uint      `json:"questionId"`
	QuizID        uint      `json:"quizId"`
	QuizTitle     string    `json:"quizTitle"`
	EnrollmentID  uint      `json:"enrollmentId"`
	StudentID     uint      `json:"studentId"`
	StudentName   string    `json:"studentName"`
	MaxPoints     int       `json:"maxPoints"`
	SubmittedAt   time.Time `json:"submittedAt"`
	QuestionText  string    `json:"questionText"`
	Response      string    `json:"response"`
	AttemptNumber int       `json:"attemptNumber"`
}

// CreateWithRetry 在一个事务里做 count-then-insert 的次数检查。
// (quiz_id, enrollment_id, attempt_number) 的唯一索引兜住并发竞态：
// 撞索引后重查一次计数，区分"真的超限"和"序号被人抢了需要重试"。
func (r *AttemptRepository) CreateWithRetry(attempt *model.Attempt, maxAttempts int, answers []model.AttemptAnswer, results []model.AttemptResult) error {
	const maxRaceRetries = 3

	for i := 0; i < maxRaceRetries; i++ {
		err := r.DB.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&model.Attempt{}).
				Where("quiz_id = ? AND enrollment_id = ?", attempt.QuizID, attempt.EnrollmentID).
				Count(&count).Error; err != nil {
				return err
			}
			if maxAttempts > 0 && count >= int64(maxAttempts) {
				return util.ErrAttemptLimitExceeded
			}
			attempt.AttemptNumber = int(count) + 1

			if err := tx.Create(attempt).Error; err != nil {
				return err
			}
			for j := range answers {
				answers[j].AttemptID = attempt.ID
			}
			for j := range results {
				results[j].AttemptID = attempt.ID
			}
			if len(answers) > 0 {
				if err := tx.Create(&answers).Error; err != nil {
					return err
				}
			}
			if len(results) > 0 {
				if err := tx.Create(&results).Error; err != nil {
					return err
				}
			}
			return nil
		})

		if err == nil || err == util.ErrAttemptLimitExceeded {
			return err
		}
		if !isDuplicateKey(err) {
			return err
		}
		// 撞了唯一索引：要么幂等键重复，要么序号竞争，重新计数后再试
		if attempt.IdempotencyKey != nil {
			var existing model.Attempt
			if findErr := r.DB.Where("idempotency_key = ?", *attempt.IdempotencyKey).
				First(&existing).Error; findErr == nil {
				return util.ErrDuplicateSubmission
			}
		}
		attempt.ID = 0
	}
	return util.ErrPersistenceFailure
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

func (r *AttemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.Preload("Answers").Preload("Results").First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindByIdempotencyKey(key string) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.Preload("Answers").Preload("Results").
		Where("idempotency_key = ?", key).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}


// ListByEnrollment 按次数倒序返回，最新一次排最前。
func (r *AttemptRepository) ListByEnrollment(quizID, enrollmentID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("quiz_id = ? AND enrollment_id = ?", quizID, enrollmentID).
		Order("attempt_number desc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountByQuizAndEnrollment(quizID, enrollmentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("quiz_id = ? AND enrollment_id = ?", quizID, enrollmentID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) GetResults(attemptID uint) ([]model.AttemptResult, error) {
	var results []model.AttemptResult
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&results).Error
	return results, err
}


// ClaimPendingResult 用条件更新做一次 CAS：只有仍是 pending 的行会被改写。
// RowsAffected 为 0 说明该行不存在或已被其他讲师批过。
func (r *AttemptRepository) ClaimPendingResult(attemptID, questionID uint, awarded int, correct bool, graderID uint, feedback string) (bool, error) {
	now := time.Now()
	res := r.DB.Model(&model.AttemptResult{}).
		Where("attempt_id = ? AND question_id = ? AND grading_status = ?", attemptID, questionID, model.GradingPending).
		Updates(map[string]interface{}{
			"awarded_points": awarded,
			"correct":        correct,
			"grading_status": model.GradingGraded,
			"grader_id":      graderID,
			"feedback":       feedback,
			"graded_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}


// UpdateVerdict 回写总分与通过判定，定稿时一并落 finalized_at。
func (r *AttemptRepository) UpdateVerdict(attempt *model.Attempt) error {
	updates := map[string]interface{}{
		"score":        attempt.Score,
		"total_points": attempt.TotalPoints,
		"passed":       attempt.Passed,
		"status":       attempt.Status,
		"finalized_at": attempt.FinalizedAt,
	}
	return r.DB.Model(&model.Attempt{}).Where("id = ?", attempt.ID).Updates(updates).Error
}

// FindPendingItems 把待批改的题直接从数据里投影出来，不单独建队列表。
// quizIDs 非 nil 时按讲师可见的测验过滤。
func (r *AttemptRepository) FindPendingItems(quizIDs []uint, page, limit int) ([]PendingItem, int64, error) {
	base := r.DB.Table("attempt_results AS ar").
		Joins("JOIN attempts AS a ON a.id = ar.attempt_id AND a.deleted_at IS NULL").
		Joins("JOIN quizzes AS qz ON qz.id = a.quiz_id AND qz.deleted_at IS NULL").
		Joins("JOIN questions AS q ON q.id = ar.question_id AND q.deleted_at IS NULL").
		Joins("JOIN enrollments AS e ON e.id = a.enrollment_id AND e.deleted_at IS NULL").
		Joins("JOIN users AS u ON u.id = e.user_id").
		Joins("LEFT JOIN attempt_answers AS aa ON aa.attempt_id = ar.attempt_id AND aa.question_id = ar.question_id").
		Where("ar.grading_status = ? AND ar.deleted_at IS NULL", model.GradingPending)

	if quizIDs != nil {
		base = base.Where("a.quiz_id IN ?", quizIDs)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []PendingItem
	offset := (page - 1) * limit
	err := base.Select(
		"ar.attempt_id AS attempt_id, ar.question_id AS question_id, ar.max_points AS max_points, " +
			"a.quiz_id AS quiz_id, qz.title AS quiz_title, a.enrollment_id AS enrollment_id, " +
			"a.attempt_number AS attempt_number, a.submitted_at AS submitted_at, " +
			"e.user_id AS student_id, u.name AS student_name, " +
			"q.text AS question_text, aa.response AS response").
		Order("a.submitted_at asc").
		Offset(offset).Limit(limit).
		Scan(&items).Error
	return items, total, err
}

func (r *AttemptRepository) QuizIDsForCourses(courseIDs []uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Quiz{}).Where("course_id IN ?", courseIDs).Pluck("id", &ids).Error
	return ids, err
}
