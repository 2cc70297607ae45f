package service

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "secret123"

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	storage *StorageService

	userRepo         *repository.UserRepository
	moduleRepo       *repository.ModuleRepository
	quizRepo         *repository.QuizRepository
	announcementRepo *repository.AnnouncementRepository
	attendanceRepo   *repository.AttendanceRepository

	enrollment    *EnrollmentService
	auth          *AuthService
	users         *UserService
	profiles      *ProfileService
	modules       *ModuleService
	quizzes       *QuizService
	attempts      *AttemptService
	announcements *AnnouncementService
	attendance    *AttendanceService
	comments      *CommentService
	recent        *RecentService
	viewed        *repository.MemoryViewedStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		},
		JWT:     config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		Quiz:    config.QuizConfig{DefaultAttemptLimit: 1},
	}
	db, err := database.InitDB(&cfg.Database, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	e := &testEnv{
		db:               db,
		cfg:              cfg,
		storage:          NewStorageService(context.Background(), cfg),
		userRepo:         repository.NewUserRepository(db),
		moduleRepo:       repository.NewModuleRepository(db),
		quizRepo:         repository.NewQuizRepository(db),
		announcementRepo: repository.NewAnnouncementRepository(db),
		attendanceRepo:   repository.NewAttendanceRepository(db),
		viewed:           repository.NewMemoryViewedStore(),
	}
	commentRepo := repository.NewCommentRepository(db)

	e.enrollment = NewEnrollmentService(e.moduleRepo, e.userRepo)
	e.auth = NewAuthService(e.userRepo, e.enrollment, cfg)
	e.users = NewUserService(e.userRepo, e.moduleRepo, e.enrollment)
	e.profiles = NewProfileService(e.userRepo, e.storage)
	e.modules = NewModuleService(e.moduleRepo, e.enrollment, e.storage)
	e.modules.ProbeMedia = func(string) (*util.MediaInfo, error) {
		return &util.MediaInfo{Duration: 12.5, Width: 640, Height: 360}, nil
	}
	e.quizzes = NewQuizService(e.quizRepo, e.moduleRepo, e.storage, cfg)
	e.attempts = NewAttemptService(e.quizRepo, e.moduleRepo, e.userRepo, e.storage)
	e.announcements = NewAnnouncementService(e.announcementRepo, e.storage)
	e.attendance = NewAttendanceService(e.attendanceRepo, e.announcementRepo, e.userRepo)
	e.comments = NewCommentService(commentRepo, e.userRepo, e.moduleRepo, e.announcementRepo, e.attendanceRepo)
	e.recent = NewRecentService(e.announcementRepo, e.moduleRepo, e.quizRepo, e.userRepo, e.viewed)
	return e
}

func (e *testEnv) createUser(t *testing.T, name, email string, role model.UserRole, approved bool) *util.Claims {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Name: name, Email: email, Password: string(hashed), Role: role, Approved: approved}
	require.NoError(t, e.userRepo.Create(u))
	return &util.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (e *testEnv) createModule(t *testing.T, owner *util.Claims, title string) *ModuleDetail {
	t.Helper()
	m, err := e.modules.Create(context.Background(), owner, ModuleInput{Title: &title})
	require.NoError(t, err)
	return m
}

// createQuiz 建好测验并保存题目，返回带题目的测验
func (e *testEnv) createQuiz(t *testing.T, owner *util.Claims, moduleID uint, questions string) *QuizView {
	t.Helper()
	q, err := e.quizzes.CreateQuizShell(owner, moduleID, "Quiz")
	require.NoError(t, err)
	view, err := e.quizzes.SaveQuestions(context.Background(), owner, SaveQuestionsInput{
		QuizID:    q.ID,
		Questions: []byte(questions),
	})
	require.NoError(t, err)
	return view
}

type upload struct {
	field, name, content string
}

// multipartFiles 构造与 gin 解析结果相同的上传文件
func multipartFiles(t *testing.T, files ...upload) map[string][]*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", "application/octet-stream")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File
}
