package service

import (
	"context"
	"testing"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleCreate_EnrollsApprovedStudents(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	approved := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)
	pending := e.createUser(t, "Pat", "pat@school.edu", model.Student, false)

	m := e.createModule(t, teacher, "Algebra")

	list, err := e.modules.ListForStudent(approved.Email)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Algebra", list[0].Title)

	_, err = e.modules.GetForStudent(pending.Email, m.ID)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	n, err := e.modules.AutoEnroll(pending.Email)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = e.modules.AutoEnroll(pending.Email)
	require.NoError(t, err)
	assert.Zero(t, n, "auto-enroll is idempotent")

	_, err = e.modules.Create(context.Background(), teacher, ModuleInput{Title: strPtr(" ")})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestModuleFiles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	files := multipartFiles(t,
		upload{"document", "notes.pdf", "%PDF-1.4"},
		upload{"media", "lecture.mp4", "not really a video"},
	)

	m, err := e.modules.Create(ctx, teacher, ModuleInput{
		Title:    strPtr("Physics"),
		Document: files["document"][0],
		Media:    files["media"][0],
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", m.DocumentName)
	assert.Equal(t, "lecture.mp4", m.MediaName)
	assert.Equal(t, 12.5, m.MediaDuration)
	assert.Equal(t, "/uploads/"+m.DocumentPath, m.DocumentURL)
	assert.FileExists(t, e.cfg.Storage.LocalPath+"/"+m.MediaPath)

	replacement := multipartFiles(t, upload{"document", "notes-v2.pdf", "%PDF-1.5"})
	updated, err := e.modules.Update(ctx, teacher, m.ID, ModuleInput{Document: replacement["document"][0]})
	require.NoError(t, err)
	assert.Equal(t, "notes-v2.pdf", updated.DocumentName)
	assert.Equal(t, "Physics", updated.Title)
	assert.NoFileExists(t, e.cfg.Storage.LocalPath+"/"+m.DocumentPath)
}

func TestModuleOwnershipAndDelete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	other := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	super := e.createUser(t, "Sue", "sue@school.edu", model.SuperTeacher, true)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	m := e.createModule(t, owner, "Chemistry")
	e.createModule(t, other, "Biology")
	quiz := e.createQuiz(t, owner, m.ID, sampleQuestions)

	_, err := e.modules.Update(ctx, other, m.ID, ModuleInput{Title: strPtr("Stolen")})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	mine, err := e.modules.ListForTeacher(owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	all, err := e.modules.ListForTeacher(super)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sub, err := e.modules.Submit(ctx, student, m.ID, multipartFiles(t, upload{"file", "essay.txt", "hello"})["file"][0])
	require.NoError(t, err)
	assert.Equal(t, "essay.txt", sub.FileName)

	assert.ErrorIs(t, e.modules.Delete(ctx, other, m.ID), util.ErrPermissionDenied)
	require.NoError(t, e.modules.Delete(ctx, super, m.ID))

	_, err = e.modules.Get(m.ID)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
	_, err = e.quizzes.Get(owner, quiz.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
	assert.NoFileExists(t, e.cfg.Storage.LocalPath+"/"+sub.FilePath)
}

func TestModuleSubmit_RequiresEnrollment(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "History")
	late := e.createUser(t, "Lee", "lee@school.edu", model.Student, true)

	fh := multipartFiles(t, upload{"file", "essay.txt", "hello"})["file"][0]
	_, err := e.modules.Submit(ctx, late, m.ID, fh)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	assert.Equal(t, 403, util.StatusOf(err))

	_, err = e.modules.Submit(ctx, late, 9999, fh)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	subs, err := e.modules.Submissions(teacher, m.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
