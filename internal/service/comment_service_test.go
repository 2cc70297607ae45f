package service

import (
	"testing"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_Authorization(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	author := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)
	peer := e.createUser(t, "Pat", "pat@school.edu", model.Student, true)
	m := e.createModule(t, teacher, "Algebra")

	c, err := e.comments.Create(author, model.ModuleComments, m.ID, "  great module ")
	require.NoError(t, err)
	assert.Equal(t, "great module", c.Text)
	assert.Equal(t, "Sam", c.AuthorName)

	_, err = e.comments.Create(author, model.ModuleComments, m.ID, "")
	assert.ErrorIs(t, err, util.ErrInvalidInput)
	_, err = e.comments.Create(author, model.ModuleComments, 9999, "lost")
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
	_, err = e.comments.Create(author, model.AnnouncementComments, 9999, "lost")
	assert.ErrorIs(t, err, util.ErrAnnouncementMissing)

	_, err = e.comments.Update(peer, model.ModuleComments, c.ID, "edited by peer")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	updated, err := e.comments.Update(author, model.ModuleComments, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)

	// 评论按类型分表，同一 ID 在其他表中不存在
	_, err = e.comments.Update(author, model.AnnouncementComments, c.ID, "wrong table")
	assert.ErrorIs(t, err, util.ErrCommentNotFound)

	assert.ErrorIs(t, e.comments.Delete(peer, model.ModuleComments, c.ID), util.ErrPermissionDenied)
	require.NoError(t, e.comments.Delete(teacher, model.ModuleComments, c.ID))

	list, err := e.comments.List(model.ModuleComments, m.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestComments_ListIsScopedToParent(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	a := e.createModule(t, teacher, "A")
	b := e.createModule(t, teacher, "B")

	for _, text := range []string{"first", "second"} {
		_, err := e.comments.Create(teacher, model.ModuleComments, a.ID, text)
		require.NoError(t, err)
	}
	_, err := e.comments.Create(teacher, model.ModuleComments, b.ID, "other")
	require.NoError(t, err)

	list, err := e.comments.List(model.ModuleComments, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
