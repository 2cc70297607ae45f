package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAttendance_CreatePublishesLinkedAnnouncement(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)

	v, err := e.attendance.Create(teacher, AttendanceInput{
		Description: strPtr("Morning roll call"),
		DueDateDate: "2030-05-01",
		DueTime:     "09:30",
	})
	require.NoError(t, err)
	assert.Equal(t, util.DueDateTime, v.DueKind)
	assert.False(t, v.Closed)

	list, err := e.announcements.List(0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].AttendanceID)
	assert.Equal(t, v.ID, *list[0].AttendanceID)
	assert.True(t, strings.HasPrefix(list[0].Description, "Morning roll call [ATTENDANCE_ID:"))
	assert.Contains(t, list[0].Description, "Due: ")

	_, err = e.attendance.Update(teacher, v.ID, AttendanceInput{Description: strPtr("Afternoon roll call")})
	require.NoError(t, err)
	linked, err := e.announcements.Get(list[0].ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(linked.Description, "Afternoon roll call"))

	_, err = e.attendance.Create(teacher, AttendanceInput{Description: strPtr("  ")})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestAttendance_Mark(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	open, err := e.attendance.Create(teacher, AttendanceInput{Description: strPtr("Open"), DueDate: "2099-01-01T10:00"})
	require.NoError(t, err)

	mark, err := e.attendance.Mark(student, open.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", mark.StudentName)

	_, err = e.attendance.Mark(student, open.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyMarked)
	assert.Equal(t, 409, util.StatusOf(err))

	got, err := e.attendance.Get(student, open.ID)
	require.NoError(t, err)
	assert.True(t, got.Marked)

	staff, err := e.attendance.Get(teacher, open.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, staff.MarkCount)
	require.Len(t, staff.Marks, 1)
	assert.Equal(t, student.Email, staff.Marks[0].StudentEmail)

	closed, err := e.attendance.Create(teacher, AttendanceInput{Description: strPtr("Closed"), DueDate: "2001-01-01T10:00"})
	require.NoError(t, err)
	_, err = e.attendance.Mark(student, closed.ID)
	assert.ErrorIs(t, err, util.ErrAttendanceClosed)
	assert.Equal(t, 400, util.StatusOf(err))
}

func TestAttendance_TimeOnlyDueClosesDaily(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	a, err := e.attendance.Create(teacher, AttendanceInput{Description: strPtr("Daily"), DueTime: "08:00"})
	require.NoError(t, err)
	assert.Equal(t, util.DueTimeOnly, a.DueKind)

	e.attendance.Now = func() time.Time { return time.Date(2030, 3, 3, 9, 0, 0, 0, time.Local) }
	_, err = e.attendance.Mark(student, a.ID)
	assert.ErrorIs(t, err, util.ErrAttendanceClosed)

	e.attendance.Now = func() time.Time { return time.Date(2030, 3, 4, 7, 0, 0, 0, time.Local) }
	_, err = e.attendance.Mark(student, a.ID)
	assert.NoError(t, err)
}

func TestAttendance_DeleteCascades(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	other := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	a, err := e.attendance.Create(teacher, AttendanceInput{Description: strPtr("Roll call")})
	require.NoError(t, err)
	_, err = e.attendance.Mark(student, a.ID)
	require.NoError(t, err)
	_, err = e.comments.Create(student, model.AttendanceComments, a.ID, "present!")
	require.NoError(t, err)

	assert.ErrorIs(t, e.attendance.Delete(other, a.ID), util.ErrPermissionDenied)
	require.NoError(t, e.attendance.Delete(teacher, a.ID))

	_, err = e.attendance.Get(teacher, a.ID)
	assert.ErrorIs(t, err, util.ErrAttendanceNotFound)
	list, err := e.announcements.List(0)
	require.NoError(t, err)
	assert.Empty(t, list, "linked announcement is removed")
	marked, err := e.attendanceRepo.HasMarked(a.ID, student.Email)
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestAnnouncement_FileLifecycle(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	other := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	ctx := context.Background()

	files := multipartFiles(t, upload{"file", "syllabus.pdf", "pdf"})
	a, err := e.announcements.Create(ctx, teacher, "Syllabus posted", files["file"][0])
	require.NoError(t, err)
	assert.Equal(t, "syllabus.pdf", a.FileName)
	assert.Equal(t, "/uploads/"+a.FilePath, a.FileURL)
	assert.Nil(t, a.AttendanceID)

	_, err = e.announcements.Update(ctx, other, a.ID, strPtr("hijack"), nil, false)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	updated, err := e.announcements.Update(ctx, teacher, a.ID, nil, nil, true)
	require.NoError(t, err)
	assert.Empty(t, updated.FilePath)
	assert.Equal(t, "Syllabus posted", updated.Description)

	require.NoError(t, e.announcements.Delete(ctx, teacher, a.ID))
	_, err = e.announcements.Get(a.ID)
	assert.ErrorIs(t, err, util.ErrAnnouncementMissing)
}
