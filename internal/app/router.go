package app

import (
	"quiz_grading_backend/docs"
	"quiz_grading_backend/internal/config"
	"quiz_grading_backend/internal/middleware"
	"quiz_grading_backend/internal/model"
	"quiz_grading_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	// 选课
	rg.POST("/enrollments", c.enrollment.Enroll)
	rg.DELETE("/enrollments/:id", c.enrollment.Cancel)

	// 测验与作答
	rg.GET("/courses/:id/quizzes", c.quiz.ListCourseQuizzes)
	rg.GET("/quizzes/:id", c.quiz.GetQuizForStudent)
	rg.POST("/quizzes/:id/attempts", c.attempt.SubmitAttempt)
	rg.GET("/quizzes/:id/attempts", c.attempt.ListAttempts)
	rg.GET("/attempts/:attemptId", c.attempt.GetAttempt)

	// 主观题附件
	rg.POST("/attachments", c.upload.UploadAttachment)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.RoleInstructor, model.RoleAdmin))
	{
		// 测验管理
		teacher.POST("/quizzes", c.quiz.CreateQuiz)
		teacher.GET("/quizzes", c.quiz.ListQuizzes)
		teacher.GET("/quizzes/:id", c.quiz.GetQuiz)
		teacher.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
		teacher.POST("/quizzes/:id/publish", c.quiz.PublishQuiz)
		teacher.GET("/quizzes/:id/versions", c.quiz.GetVersions)
		teacher.POST("/quizzes/:id/versions/:versionId/rollback", c.quiz.RollbackVersion)

		// 人工批改
		teacher.GET("/grading/pending", c.grade.ListPendingGrading)
		teacher.POST("/attempts/:attemptId/questions/:questionId/grade", c.grade.GradeQuestion)
	}
}
