package app

import (
	"communilearn_backend/docs"
	"communilearn_backend/internal/middleware"
	"communilearn_backend/internal/model"
	"communilearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config))
	{
		a.registerAccountRoutes(authGroup, c)
		a.registerModuleRoutes(authGroup, c)
		a.registerQuizRoutes(authGroup, c)
		a.registerAnnouncementRoutes(authGroup, c)
		a.registerAttendanceRoutes(authGroup, c)

		authGroup.GET("/recent", c.recent.GetRecent)
		authGroup.POST("/recent/viewed", c.recent.MarkViewed)
		authGroup.GET("/recent/ws", c.recent.Stream)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/signup", c.auth.Signup)
		public.POST("/auth/login", c.auth.Login)
	}
}

func (a *App) registerAccountRoutes(r *gin.RouterGroup, c *controllers) {
	staff := middleware.RoleMiddleware(model.Teacher)

	auth := r.Group("/auth")
	{
		auth.GET("/teachers", c.auth.Teachers)
		auth.GET("/pending-users", staff, c.auth.PendingUsers)
		auth.GET("/approved", staff, c.auth.ApprovedUsers)
		auth.POST("/approve/:id", staff, c.auth.Approve)
		auth.POST("/deny/:id", staff, c.auth.Deny)
		auth.DELETE("/remove/:id", staff, c.auth.Remove)

		// 与 /api/profile 相同
		auth.PUT("/profile", c.profile.Update)
		auth.POST("/profile/avatar", c.profile.UploadAvatar)
	}

	profile := r.Group("/profile")
	{
		profile.GET("", c.profile.Get)
		profile.PUT("", c.profile.Update)
		profile.POST("/avatar", c.profile.UploadAvatar)
		profile.GET("/:email", c.profile.GetByEmail)
	}
}

func (a *App) registerModuleRoutes(r *gin.RouterGroup, c *controllers) {
	staff := middleware.RoleMiddleware(model.Teacher)
	student := middleware.RoleMiddleware(model.Student)

	modules := r.Group("/modules")
	{
		modules.GET("/student", student, c.module.StudentModules)
		modules.GET("/student/:id", student, c.module.StudentModule)
		modules.GET("/teacher", staff, c.module.TeacherModules)
		modules.POST("/auto-enroll", student, c.module.AutoEnroll)

		modules.POST("", staff, c.module.CreateModule)
		modules.GET("/:id", c.module.GetModule)
		modules.PUT("/:id", staff, c.module.UpdateModule)
		modules.DELETE("/:id", staff, c.module.DeleteModule)

		modules.POST("/:id/submissions", student, c.module.SubmitFile)
		modules.GET("/:id/submissions", staff, c.module.Submissions)
	}

	comments := r.Group("/module-comments")
	{
		comments.GET("/:moduleId", c.moduleComments.ListComments)
		comments.POST("/:moduleId", c.moduleComments.CreateComment)
		comments.PUT("/:id", c.moduleComments.UpdateComment)
		comments.DELETE("/delete/:id", c.moduleComments.DeleteComment)
	}
}

func (a *App) registerQuizRoutes(r *gin.RouterGroup, c *controllers) {
	staff := middleware.RoleMiddleware(model.Teacher)
	student := middleware.RoleMiddleware(model.Student)

	quizzes := r.Group("/quizzes")
	{
		// 教师出题
		quizzes.POST("/create", staff, c.quiz.CreateQuiz)
		quizzes.POST("/save-questions", staff, c.quiz.SaveQuestions)
		quizzes.GET("/teacher", staff, c.quiz.TeacherQuizzes)
		quizzes.DELETE("/:id", staff, c.quiz.DeleteQuiz)
		quizzes.GET("/:id/scores", staff, c.quiz.Scores)
		quizzes.GET("/:id/attempts/list", staff, c.quiz.Attempts)
		quizzes.GET("/:id/submissions", staff, c.quiz.Submissions)

		// 学生作答
		quizzes.GET("/student", student, c.quiz.StudentQuizzes)
		quizzes.GET("/:id/attempts", c.quiz.AttemptStatus)
		quizzes.POST("/:id/submit", student, c.quiz.SubmitAttempt)

		quizzes.GET("/:id", c.quiz.GetQuiz)
		quizzes.GET("/:id/score", c.quiz.Score)
	}
}

func (a *App) registerAnnouncementRoutes(r *gin.RouterGroup, c *controllers) {
	staff := middleware.RoleMiddleware(model.Teacher)

	announcements := r.Group("/announcements")
	{
		announcements.GET("", c.announcement.ListAnnouncements)
		announcements.GET("/:id", c.announcement.GetAnnouncement)
		announcements.POST("", staff, c.announcement.CreateAnnouncement)
		announcements.PUT("/:id", staff, c.announcement.UpdateAnnouncement)
		announcements.DELETE("/:id", staff, c.announcement.DeleteAnnouncement)

		announcements.GET("/:id/comments", c.announcementComments.ListComments)
		announcements.POST("/:id/comments", c.announcementComments.CreateComment)
		announcements.PUT("/:id/comments/:cid", c.announcementComments.UpdateComment)
		announcements.DELETE("/:id/comments/:cid", c.announcementComments.DeleteComment)
	}
}

func (a *App) registerAttendanceRoutes(r *gin.RouterGroup, c *controllers) {
	staff := middleware.RoleMiddleware(model.Teacher)
	student := middleware.RoleMiddleware(model.Student)

	attendance := r.Group("/attendance")
	{
		attendance.GET("", c.attendance.ListAttendance)
		attendance.GET("/:id", c.attendance.GetAttendance)
		attendance.POST("", staff, c.attendance.CreateAttendance)
		attendance.PUT("/:id", staff, c.attendance.UpdateAttendance)
		attendance.DELETE("/:id", staff, c.attendance.DeleteAttendance)
		attendance.POST("/:id/mark", student, c.attendance.MarkAttendance)

		attendance.GET("/:id/comments", c.attendanceComments.ListComments)
		attendance.POST("/:id/comments", c.attendanceComments.CreateComment)
		attendance.PUT("/:id/comments/:cid", c.attendanceComments.UpdateComment)
		attendance.DELETE("/:id/comments/:cid", c.attendanceComments.DeleteComment)
	}
}
