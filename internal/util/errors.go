package util

import "errors"

var (
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizNotPublished   = errors.New("quiz not published or not accessible")
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")

	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrEnrollmentNotActive = errors.New("enrollment not active")

	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrDuplicateSubmission  = errors.New("duplicate submission")

	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	ErrUnknownPendingItem      = errors.New("unknown pending item")
	ErrInvalidGrade            = errors.New("invalid grade")

	ErrPersistenceFailure = errors.New("persistence failure")
)
