package service

import (
	"errors"
	"time"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/repository"
	"quiz_grading_backend/internal/util"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	DB             *gorm.DB
}

func NewEnrollmentService(enrollmentRepo *repository.EnrollmentRepository, db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{EnrollmentRepo: enrollmentRepo, DB: db}
}

// Enroll 注册选课，同一门课重复选课返回已有记录。
func (s *EnrollmentService) Enroll(userID, courseID uint) (*model.Enrollment, error) {
	existing, err := s.EnrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrPersistenceFailure
	}

	enrollment := &model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, util.ErrPersistenceFailure
	}
	return enrollment, nil
}

func (s *EnrollmentService) Cancel(userID, enrollmentID uint) error {
	enrollment, err := s.EnrollmentRepo.FindByID(enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrEnrollmentNotFound
		}
		return util.ErrPersistenceFailure
	}
	if enrollment.UserID != userID {
		return util.ErrEnrollmentNotFound
	}
	return s.EnrollmentRepo.UpdateStatus(enrollmentID, model.EnrollmentCancelled)
}
