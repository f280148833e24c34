package repository

import (
	"time"

	"quiz_grading_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}



func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) ListByCreator(creatorID uint, page, limit int) ([]model.Quiz, int, error) {
	var quizzes []model.Quiz
	var total int64
	query := r.DB.Model(&model.Quiz{})
	if creatorID > 0 {
		query = query.Where("creator_id = ?", creatorID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&quizzes).Error
	return quizzes, int(total), err
}

func (r *QuizRepository) ListPublishedByCourse(courseID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("course_id = ? AND is_published = ?", courseID, true).
		Order("created_at asc").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) GetQuestionsByQuiz(quizID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("quiz_id = ?", quizID).Order("position asc").Find(&qs).Error
	return qs, err
}




func (r *QuizRepository) GetVersions(quizID uint) ([]model.QuizVersion, error) {
	var versions []model.QuizVersion
	err := r.DB.Where("quiz_id = ?", quizID).Order("version_number desc").Find(&versions).Error
	return versions, err
}

func (r *QuizRepository) GetVersionByID(id uint) (*model.QuizVersion, error) {
	var v model.QuizVersion
	err := r.DB.First(&v, id).Error
	return &v, err
}

// FindDueForScheduledPublish 找出已到定时发布时间但尚未发布的测验。
func (r *QuizRepository) FindDueForScheduledPublish(now time.Time) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("is_published = ? AND scheduled_publish_at IS NOT NULL AND scheduled_publish_at <= ?", false, now).
		Find(&quizzes).Error
	return quizzes, err
}
