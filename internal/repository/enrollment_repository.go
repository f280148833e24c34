package repository

import (
	"quiz_grading_backend/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.DB.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByUserAndCourse(userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) UpdateStatus(id uint, status model.EnrollmentStatus) error {
	return r.DB.Model(&model.Enrollment{}).Where("id = ?", id).Update("status", status).Error
}

// CourseIDsForInstructor 返回讲师可批改的课程：本人开设的课程，
// 加上通过分组被指派进来的课程。人工评分队列据此过滤可见范围。
func (r *EnrollmentRepository) CourseIDsForInstructor(instructorID uint) ([]uint, error) {
	var owned []uint
	if err := r.DB.Model(&model.Course{}).
		Where("instructor_id = ?", instructorID).
		Pluck("id", &owned).Error; err != nil {
		return nil, err
	}

	var assigned []uint
	if err := r.DB.Model(&model.CourseSection{}).
		Where("instructor_id = ?", instructorID).
		Distinct().
		Pluck("course_id", &assigned).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(owned))
	for _, id := range owned {
		seen[id] = true
	}
	for _, id := range assigned {
		if !seen[id] {
			owned = append(owned, id)
			seen[id] = true
		}
	}
	return owned, nil
}
