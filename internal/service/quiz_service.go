package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/internal/repository"
	"quiz_grading_backend/internal/util"
	"quiz_grading_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizService struct {
	QuizRepo *repository.QuizRepository
	DB       *gorm.DB
}

func NewQuizService(quizRepo *repository.QuizRepository, db *gorm.DB) *QuizService {
	return &QuizService{QuizRepo: quizRepo, DB: db}
}

type QuestionRequest struct {
	Type        model.QuestionType `json:"type" binding:"required"`
	Text        string             `json:"text" binding:"required"`
	Points      int                `json:"points" binding:"required"`
	Payload     json.RawMessage    `json:"payload"`
	Explanation string             `json:"explanation,omitempty"`
}

type QuizCreateRequest struct {
	CourseID            uint              `json:"courseId" binding:"required"`
	Title               string            `json:"title" binding:"required"`
	Description         string            `json:"description"`
	PassingScorePercent int               `json:"passingScorePercent"`
	MaxAttempts         int               `json:"maxAttempts"`
	ShuffleQuestions    bool              `json:"shuffleQuestions"`
	TimeLimitSeconds    int               `json:"timeLimitSeconds"`
	CompletionGating    bool              `json:"completionGating"`
	IsPublished         bool              `json:"isPublished"`
	ScheduledPublishAt  *time.Time        `json:"scheduledPublishAt"`
	Questions           []QuestionRequest `json:"questions"`
}

func (s *QuizService) CreateQuiz(creatorID uint, req QuizCreateRequest) (*model.Quiz, error) {
	if req.Title == "" {
		return nil, errors.New("title required")
	}
	if req.PassingScorePercent <= 0 {
		req.PassingScorePercent = 60
	}

	var createdQuiz *model.Quiz
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		quiz := &model.Quiz{
			CreatorID:           creatorID,
			CourseID:            req.CourseID,
			Title:               req.Title,
			Description:         req.Description,
			PassingScorePercent: req.PassingScorePercent,
			MaxAttempts:         req.MaxAttempts,
			ShuffleQuestions:    req.ShuffleQuestions,
			TimeLimitSeconds:    req.TimeLimitSeconds,
			CompletionGating:    req.CompletionGating,
			IsPublished:         req.IsPublished,
			ScheduledPublishAt:  req.ScheduledPublishAt,
		}
		if req.IsPublished {
			now := time.Now()
			quiz.PublishedAt = &now
		}
		if err := tx.Create(quiz).Error; err != nil {
			return err
		}

		questions, err := buildQuestions(quiz.ID, req.Questions)
		if err != nil {
			return err
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}

		version, err := snapshotVersion(tx, quiz, creatorID, "Initial version")
		if err != nil {
			return err
		}
		quiz.CurrentVersion = version.ID
		if err := tx.Save(quiz).Error; err != nil {
			return err
		}

		createdQuiz = quiz
		return nil
	})
	if err != nil {
		return nil, err
	}
	return createdQuiz, nil
}

// UpdateQuiz 修改测验并生成新的版本快照，已有作答仍按旧版本计分。
func (s *QuizService) UpdateQuiz(editorID, quizID uint, req QuizCreateRequest) (*model.Quiz, error) {
	var updatedQuiz *model.Quiz
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var quiz model.Quiz
		if err := tx.First(&quiz, quizID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrQuizNotFound
			}
			return err
		}

		quiz.Title = req.Title
		quiz.Description = req.Description
		if req.PassingScorePercent > 0 {
			quiz.PassingScorePercent = req.PassingScorePercent
		}
		quiz.MaxAttempts = req.MaxAttempts
		quiz.ShuffleQuestions = req.ShuffleQuestions
		quiz.TimeLimitSeconds = req.TimeLimitSeconds
		quiz.CompletionGating = req.CompletionGating
		quiz.ScheduledPublishAt = req.ScheduledPublishAt
		if err := tx.Save(&quiz).Error; err != nil {
			return err
		}

		if req.Questions != nil {
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&model.Question{}).Error; err != nil {
				return err
			}
			questions, err := buildQuestions(quiz.ID, req.Questions)
			if err != nil {
				return err
			}
			if len(questions) > 0 {
				if err := tx.Create(&questions).Error; err != nil {
					return err
				}
			}
		}

		version, err := snapshotVersion(tx, &quiz, editorID, "Edit")
		if err != nil {
			return err
		}
		quiz.CurrentVersion = version.ID
		if err := tx.Save(&quiz).Error; err != nil {
			return err
		}

		updatedQuiz = &quiz
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updatedQuiz, nil
}

func (s *QuizService) PublishQuiz(editorID, quizID uint, publish bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var quiz model.Quiz
		if err := tx.First(&quiz, quizID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrQuizNotFound
			}
			return err
		}
		quiz.IsPublished = publish
		if publish {
			now := time.Now()
			quiz.PublishedAt = &now
			quiz.ScheduledPublishAt = nil
		} else {
			quiz.PublishedAt = nil
		}
		if err := tx.Save(&quiz).Error; err != nil {
			return err
		}

		note := "Publish"
		if !publish {
			note = "Unpublish"
		}
		version, err := snapshotVersion(tx, &quiz, editorID, note)
		if err != nil {
			return err
		}
		quiz.CurrentVersion = version.ID
		return tx.Save(&quiz).Error
	})
}

func (s *QuizService) GetVersions(quizID uint) ([]model.QuizVersion, error) {
	return s.QuizRepo.GetVersions(quizID)
}

// RollbackToVersion 把历史快照作为新版本套用到当前测验上。
func (s *QuizService) RollbackToVersion(editorID, quizID, versionID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		v, err := s.QuizRepo.GetVersionByID(versionID)
		if err != nil {
			return err
		}
		if v.QuizID != quizID {
			return util.ErrQuizNotFound
		}
		var snap model.QuizSnapshot
		if err := json.Unmarshal([]byte(v.Content), &snap); err != nil {
			return err
		}

		var quiz model.Quiz
		if err := tx.First(&quiz, quizID).Error; err != nil {
			return err
		}
		quiz.Title = snap.Quiz.Title
		quiz.Description = snap.Quiz.Description
		quiz.PassingScorePercent = snap.Quiz.PassingScorePercent
		quiz.MaxAttempts = snap.Quiz.MaxAttempts
		quiz.ShuffleQuestions = snap.Quiz.ShuffleQuestions
		quiz.TimeLimitSeconds = snap.Quiz.TimeLimitSeconds
		quiz.CompletionGating = snap.Quiz.CompletionGating
		if err := tx.Save(&quiz).Error; err != nil {
			return err
		}

		if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if len(snap.Questions) > 0 {
			for i := range snap.Questions {
				snap.Questions[i].QuizID = quiz.ID
			}
			if err := tx.Create(&snap.Questions).Error; err != nil {
				return err
			}
		}

		versions, err := s.QuizRepo.GetVersions(quiz.ID)
		if err != nil {
			return err
		}
		nextVersion := 1
		if len(versions) > 0 {
			nextVersion = versions[0].VersionNumber + 1
		}
		newV := &model.QuizVersion{
			QuizID:        quiz.ID,
			VersionNumber: nextVersion,
			EditorID:      editorID,
			ChangeNote:    fmt.Sprintf("Rollback to version %d", v.VersionNumber),
			Content:       v.Content,
			IsPublished:   quiz.IsPublished,
			PublishedAt:   quiz.PublishedAt,
		}
		if err := tx.Create(newV).Error; err != nil {
			return err
		}
		quiz.CurrentVersion = newV.ID
		return tx.Save(&quiz).Error
	})
}

// ListQuizzes 分页列出讲师创建的测验。
func (s *QuizService) ListQuizzes(creatorID uint, page, limit int) ([]model.Quiz, int, error) {
	return s.QuizRepo.ListByCreator(creatorID, page, limit)
}

// ListPublishedForCourse 列出课程下已发布的测验，不带题目内容。
func (s *QuizService) ListPublishedForCourse(courseID uint) ([]model.Quiz, error) {
	return s.QuizRepo.ListPublishedByCourse(courseID)
}

func (s *QuizService) GetQuiz(quizID uint) (*model.Quiz, []model.Question, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrQuizNotFound
		}
		return nil, nil, err
	}
	questions, err := s.QuizRepo.GetQuestionsByQuiz(quizID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, questions, nil
}

// StudentQuestionView 是发给学生的题面，不含正确答案与解析。
type StudentQuestionView struct {
	ID       uint               `json:"id"`
	Position int                `json:"position"`
	Type     model.QuestionType `json:"type"`
	Text     string             `json:"text"`
	Points   int                `json:"points"`
	Options  []string           `json:"options,omitempty"`
}

type StudentQuizView struct {
	ID                  uint                  `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	PassingScorePercent int                   `json:"passingScorePercent"`
	MaxAttempts         int                   `json:"maxAttempts"`
	TimeLimitSeconds    int                   `json:"timeLimitSeconds"`
	Questions           []StudentQuestionView `json:"questions"`
}

// GetQuizForStudent 返回学生视角的测验。按当前版本快照出题，
// 配置了乱序时每次请求重排题目顺序。
func (s *QuizService) GetQuizForStudent(quizID uint) (*StudentQuizView, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotPublished
	}

	questions, err := s.questionsFromSnapshot(quiz)
	if err != nil {
		return nil, err
	}

	view := &StudentQuizView{
		ID:                  quiz.ID,
		Title:               quiz.Title,
		Description:         quiz.Description,
		PassingScorePercent: quiz.PassingScorePercent,
		MaxAttempts:         quiz.MaxAttempts,
		TimeLimitSeconds:    quiz.TimeLimitSeconds,
	}
	for _, q := range questions {
		qv := StudentQuestionView{
			ID:       q.ID,
			Position: q.Position,
			Type:     q.Type,
			Text:     q.Text,
			Points:   q.Points,
		}
		if q.Type == model.QuestionMultipleChoice {
			payload, err := q.DecodePayload()
			if err == nil {
				if p, ok := payload.(model.MultipleChoicePayload); ok {
					qv.Options = p.Options
				}
			}
		}
		view.Questions = append(view.Questions, qv)
	}

	if quiz.ShuffleQuestions {
		rand.Shuffle(len(view.Questions), func(i, j int) {
			view.Questions[i], view.Questions[j] = view.Questions[j], view.Questions[i]
		})
	}
	return view, nil
}

func (s *QuizService) questionsFromSnapshot(quiz *model.Quiz) ([]model.Question, error) {
	if quiz.CurrentVersion > 0 {
		v, err := s.QuizRepo.GetVersionByID(quiz.CurrentVersion)
		if err == nil {
			var snap model.QuizSnapshot
			if err := json.Unmarshal([]byte(v.Content), &snap); err == nil && len(snap.Questions) > 0 {
				return snap.Questions, nil
			}
		}
	}
	return s.QuizRepo.GetQuestionsByQuiz(quiz.ID)
}

// ProcessScheduledPublishes 发布到期的测验，由后台定时任务触发。
func (s *QuizService) ProcessScheduledPublishes() error {
	quizzes, err := s.QuizRepo.FindDueForScheduledPublish(time.Now())
	if err != nil {
		return err
	}
	for _, quiz := range quizzes {
		if err := s.PublishQuiz(quiz.CreatorID, quiz.ID, true); err != nil {
			logger.Log.Warn("scheduled publish failed",
				zap.Uint("quizId", quiz.ID),
				zap.Error(err))
			continue
		}
	}
	return nil
}

func buildQuestions(quizID uint, reqs []QuestionRequest) ([]model.Question, error) {
	var questions []model.Question
	for idx, qr := range reqs {
		q := model.Question{
			QuizID:      quizID,
			Position:    idx + 1,
			Type:        qr.Type,
			Text:        qr.Text,
			Points:      qr.Points,
			Payload:     string(qr.Payload),
			Explanation: qr.Explanation,
		}
		if q.Payload == "" {
			q.Payload = "{}"
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", idx+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// snapshotVersion 把测验与题目打成 JSON 写入新版本。
func snapshotVersion(tx *gorm.DB, quiz *model.Quiz, editorID uint, note string) (*model.QuizVersion, error) {
	var questions []model.Question
	if err := tx.Where("quiz_id = ?", quiz.ID).Order("position asc").Find(&questions).Error; err != nil {
		return nil, err
	}
	snapshot := model.QuizSnapshot{Quiz: *quiz, Questions: questions}
	content, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	var latest model.QuizVersion
	nextVersion := 1
	if err := tx.Where("quiz_id = ?", quiz.ID).Order("version_number desc").First(&latest).Error; err == nil {
		nextVersion = latest.VersionNumber + 1
	}

	version := &model.QuizVersion{
		QuizID:        quiz.ID,
		VersionNumber: nextVersion,
		EditorID:      editorID,
		ChangeNote:    note,
		Content:       string(content),
		IsPublished:   quiz.IsPublished,
		PublishedAt:   quiz.PublishedAt,
	}
	if err := tx.Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}
