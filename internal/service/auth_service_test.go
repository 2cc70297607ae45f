package service

import (
	"testing"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	e := newTestEnv(t)

	user, err := e.auth.Signup(SignupInput{Name: "Ana", Email: " Ana@School.edu ", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "ana@school.edu", user.Email)
	assert.Equal(t, model.Student, user.Role)
	assert.False(t, user.Approved)

	_, err = e.auth.Signup(SignupInput{Name: "Ana 2", Email: "ana@school.edu", Password: testPassword})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = e.auth.Signup(SignupInput{Name: "Root", Email: "root@school.edu", Password: testPassword, Role: "superteacher"})
	assert.ErrorIs(t, err, util.ErrInvalidRole)

	_, _, err = e.auth.Login("ana@school.edu", testPassword)
	assert.ErrorIs(t, err, util.ErrNotApproved)
	assert.Equal(t, 403, util.StatusOf(err))

	_, _, err = e.auth.Login("ana@school.edu", "wrong-password")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, _, err = e.auth.Login("nobody@school.edu", testPassword)
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestLogin_StudentIsAutoEnrolled(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "Algebra")
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	token, user, err := e.auth.Login("SAM@school.edu", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, student.Email, user.Email)

	claims, err := util.ParseJWT(token, e.cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, model.Student, claims.Role)
	assert.Equal(t, user.ID, claims.UserID)

	ok, err := e.moduleRepo.IsEnrolled(student.Email, m.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApprovalRules(t *testing.T) {
	e := newTestEnv(t)
	super := e.createUser(t, "Root", "root@school.edu", model.SuperTeacher, true)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "Algebra")
	pendingStudent := e.createUser(t, "Sam", "sam@school.edu", model.Student, false)
	pendingTeacher := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, false)

	pending, err := e.users.PendingUsers(teacher)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pendingStudent.Email, pending[0].Email)

	pending, err = e.users.PendingUsers(super)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = e.users.Approve(teacher, pendingTeacher.UserID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	approved, err := e.users.Approve(teacher, pendingStudent.UserID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	ok, err := e.moduleRepo.IsEnrolled(pendingStudent.Email, m.ID)
	require.NoError(t, err)
	assert.True(t, ok, "approving a student enrolls them in every module")

	_, err = e.users.Approve(super, pendingTeacher.UserID)
	require.NoError(t, err)

	_, err = e.users.Approve(super, super.UserID)
	assert.ErrorIs(t, err, util.ErrCannotRemoveSelf)

	_, err = e.users.Approve(super, 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestDenyAndRemove(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	other := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	e.createModule(t, teacher, "Algebra")
	pending := e.createUser(t, "Pat", "pat@school.edu", model.Student, false)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)
	_, err := e.enrollment.EnrollStudent(student.Email)
	require.NoError(t, err)

	err = e.users.Deny(teacher, student.UserID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied, "approved users are removed, not denied")

	require.NoError(t, e.users.Deny(teacher, pending.UserID))
	_, err = e.userRepo.FindByID(pending.UserID)
	assert.Error(t, err)

	assert.ErrorIs(t, e.users.Remove(teacher, other.UserID), util.ErrPermissionDenied)
	assert.ErrorIs(t, e.users.Remove(teacher, teacher.UserID), util.ErrCannotRemoveSelf)

	require.NoError(t, e.users.Remove(teacher, student.UserID))
	ids, err := e.moduleRepo.EnrolledModuleIDs(student.Email)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
