package service

import (
	"context"
	"testing"
	"time"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeRecent_DedupAndOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	a := []RecentItem{
		newRecentItem(RecentAnnouncement, 1, "a1", "", base),
		newRecentItem(RecentModule, 2, "m2", "", base.Add(2*time.Hour)),
	}
	b := []RecentItem{
		newRecentItem(RecentModule, 2, "m2 again", "", base.Add(5*time.Hour)),
		newRecentItem(RecentQuiz, 3, "q3", "", base.Add(time.Hour)),
	}

	merged := MergeRecent(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, []string{"Module:2", "Quiz:3", "Announcement:1"},
		[]string{merged[0].Key, merged[1].Key, merged[2].Key})
	assert.Equal(t, "m2", merged[0].Title, "first occurrence wins")

	n := ApplyViewed(merged, map[string]bool{"Quiz:3": true})
	assert.Equal(t, 2, n)
	assert.False(t, merged[1].IsNew)
}

func TestParseRecentKey(t *testing.T) {
	typ, id, err := ParseRecentKey(" Quiz:7 ")
	require.NoError(t, err)
	assert.Equal(t, RecentQuiz, typ)
	assert.Equal(t, uint(7), id)

	for _, bad := range []string{"", "Quiz", "Quiz:", "Quiz:0", "Quiz:-1", "Lesson:3", "Quiz:abc"} {
		_, _, err := ParseRecentKey(bad)
		assert.ErrorIs(t, err, util.ErrInvalidInput, bad)
	}
}

func TestRecentFeed_StudentSeesEnrolledContent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	enrolled := e.createModule(t, teacher, "Enrolled")
	quiz := e.createQuiz(t, teacher, enrolled.ID, sampleQuestions)
	ann, err := e.announcements.Create(ctx, teacher, "Welcome", nil)
	require.NoError(t, err)

	// 后加入的学生不会被自动选入此前未选的模块
	late := e.createUser(t, "Lee", "lee@school.edu", model.Student, true)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, e.db.Model(&model.Announcement{}).Where("id = ?", ann.ID).Update("created_at", base.Add(30*time.Minute)).Error)
	require.NoError(t, e.db.Model(&model.Module{}).Where("id = ?", enrolled.ID).Update("created_at", base.Add(10*time.Minute)).Error)
	require.NoError(t, e.db.Model(&model.Quiz{}).Where("id = ?", quiz.ID).Update("created_at", base.Add(20*time.Minute)).Error)
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", teacher.UserID).Update("created_at", base).Error)

	feed, err := e.recent.Feed(ctx, student, 0)
	require.NoError(t, err)
	keys := make([]string, 0, len(feed.Items))
	for _, it := range feed.Items {
		keys = append(keys, it.Key)
	}
	assert.Equal(t, []string{
		RecentKey(RecentAnnouncement, ann.ID),
		RecentKey(RecentQuiz, quiz.ID),
		RecentKey(RecentModule, enrolled.ID),
		RecentKey(RecentTeacher, teacher.UserID),
	}, keys)
	assert.Equal(t, 4, feed.NewCount)

	lateFeed, err := e.recent.Feed(ctx, late, 0)
	require.NoError(t, err)
	for _, it := range lateFeed.Items {
		assert.NotEqual(t, RecentQuiz, it.Type, "quiz of a module the student is not enrolled in")
	}

	require.NoError(t, e.recent.MarkViewed(ctx, student, []string{keys[0], keys[1]}))
	feed, err = e.recent.Feed(ctx, student, 1)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 1)
	assert.False(t, feed.Items[0].IsNew)
	assert.Equal(t, 2, feed.NewCount, "newCount covers the whole feed")

	assert.ErrorIs(t, e.recent.MarkViewed(ctx, student, nil), util.ErrInvalidInput)
	assert.ErrorIs(t, e.recent.MarkViewed(ctx, student, []string{"Bogus:1"}), util.ErrInvalidInput)
}
