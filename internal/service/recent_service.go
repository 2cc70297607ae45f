package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"

	"github.com/pkg/errors"
)

const (
	RecentAnnouncement = "Announcement"
	RecentModule       = "Module"
	RecentQuiz         = "Quiz"
	RecentTeacher      = "Teacher"
)

// RecentItem swagger:model RecentItem
type RecentItem struct {
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	CreatedAt time.Time `json:"createdAt"`
	IsNew     bool      `json:"isNew"`
}

// RecentFeed swagger:model RecentFeed
type RecentFeed struct {
	Items    []RecentItem `json:"items"`
	NewCount int          `json:"newCount"`
}

func RecentKey(typ string, id uint) string {
	return fmt.Sprintf("%s:%d", typ, id)
}

func newRecentItem(typ string, id uint, title, subtitle string, createdAt time.Time) RecentItem {
	return RecentItem{Key: RecentKey(typ, id), Type: typ, ID: id, Title: title, Subtitle: subtitle, CreatedAt: createdAt}
}

// MergeRecent 合并多个列表，按创建时间倒序并按 (type,id) 去重
func MergeRecent(lists ...[]RecentItem) []RecentItem {
	seen := make(map[string]bool)
	var merged []RecentItem
	for _, list := range lists {
		for _, it := range list {
			if seen[it.Key] {
				continue
			}
			seen[it.Key] = true
			merged = append(merged, it)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// ApplyViewed 标记未查看的条目并返回未查看数量
func ApplyViewed(items []RecentItem, viewed map[string]bool) int {
	n := 0
	for i := range items {
		items[i].IsNew = !viewed[items[i].Key]
		if items[i].IsNew {
			n++
		}
	}
	return n
}

// ParseRecentKey 校验 "Type:id" 格式
func ParseRecentKey(key string) (string, uint, error) {
	typ, idStr, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok {
		return "", 0, errors.Wrapf(util.ErrInvalidInput, "malformed key %q", key)
	}
	switch typ {
	case RecentAnnouncement, RecentModule, RecentQuiz, RecentTeacher:
	default:
		return "", 0, errors.Wrapf(util.ErrInvalidInput, "unknown item type %q", typ)
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return "", 0, errors.Wrapf(util.ErrInvalidInput, "malformed key %q", key)
	}
	return typ, uint(id), nil
}

// RecentService 最近动态：公告、模块、测验与教师合并为一个时间线
type RecentService struct {
	AnnouncementRepo *repository.AnnouncementRepository
	ModuleRepo       *repository.ModuleRepository
	QuizRepo         *repository.QuizRepository
	UserRepo         *repository.UserRepository
	Viewed           repository.ViewedStore
}

func NewRecentService(
	announcementRepo *repository.AnnouncementRepository,
	moduleRepo *repository.ModuleRepository,
	quizRepo *repository.QuizRepository,
	userRepo *repository.UserRepository,
	viewed repository.ViewedStore,
) *RecentService {
	return &RecentService{
		AnnouncementRepo: announcementRepo,
		ModuleRepo:       moduleRepo,
		QuizRepo:         quizRepo,
		UserRepo:         userRepo,
		Viewed:           viewed,
	}
}

func (s *RecentService) collect(actor *util.Claims) ([][]RecentItem, error) {
	announcements, err := s.AnnouncementRepo.FindAll(0)
	if err != nil {
		return nil, err
	}

	var (
		modules []model.Module
		quizzes []model.Quiz
	)
	if actor.IsStaff() {
		if modules, err = s.ModuleRepo.FindAll(); err != nil {
			return nil, err
		}
		if actor.IsSuperTeacher() {
			quizzes, err = s.QuizRepo.FindAll()
		} else {
			quizzes, err = s.QuizRepo.FindByTeacher(actor.Email)
		}
	} else {
		if modules, err = s.ModuleRepo.FindEnrolled(actor.Email); err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(modules))
		for _, m := range modules {
			ids = append(ids, m.ID)
		}
		quizzes, err = s.QuizRepo.FindByModules(ids)
	}
	if err != nil {
		return nil, err
	}

	teachers, err := s.UserRepo.FindTeachers()
	if err != nil {
		return nil, err
	}

	lists := make([][]RecentItem, 4)
	for _, a := range announcements {
		lists[0] = append(lists[0], newRecentItem(RecentAnnouncement, a.ID, a.Description, a.TeacherEmail, a.CreatedAt))
	}
	for _, m := range modules {
		lists[1] = append(lists[1], newRecentItem(RecentModule, m.ID, m.Title, m.TeacherEmail, m.CreatedAt))
	}
	for _, q := range quizzes {
		lists[2] = append(lists[2], newRecentItem(RecentQuiz, q.ID, q.Title, q.TeacherEmail, q.CreatedAt))
	}
	for _, t := range teachers {
		lists[3] = append(lists[3], newRecentItem(RecentTeacher, t.ID, t.Name, t.Email, t.CreatedAt))
	}
	return lists, nil
}

// Feed newCount 统计全部条目，limit 只截断返回的列表
func (s *RecentService) Feed(ctx context.Context, actor *util.Claims, limit int) (*RecentFeed, error) {
	lists, err := s.collect(actor)
	if err != nil {
		return nil, err
	}
	items := MergeRecent(lists...)

	viewed, err := s.Viewed.Viewed(ctx, actor.Email)
	if err != nil {
		return nil, errors.Wrap(err, "load viewed items")
	}
	n := ApplyViewed(items, viewed)

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []RecentItem{}
	}
	return &RecentFeed{Items: items, NewCount: n}, nil
}

func (s *RecentService) MarkViewed(ctx context.Context, actor *util.Claims, keys []string) error {
	if len(keys) == 0 {
		return errors.Wrap(util.ErrInvalidInput, "keys are required")
	}
	normalized := make([]string, 0, len(keys))
	for _, k := range keys {
		typ, id, err := ParseRecentKey(k)
		if err != nil {
			return err
		}
		normalized = append(normalized, RecentKey(typ, id))
	}
	return s.Viewed.MarkViewed(ctx, actor.Email, normalized...)
}
