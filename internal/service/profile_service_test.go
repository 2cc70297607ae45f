package service

import (
	"context"
	"testing"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

func TestProfileUpdate(t *testing.T) {
	e := newTestEnv(t)
	sam := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	p, err := e.profiles.Update(sam.UserID, ProfileInput{Name: strPtr(" Samuel "), Bio: strPtr("hi"), StudentID: strPtr("S-42")})
	require.NoError(t, err)
	assert.Equal(t, "Samuel", p.Name)
	assert.Equal(t, "S-42", p.StudentID)

	_, err = e.profiles.Update(sam.UserID, ProfileInput{Name: strPtr("")})
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = e.profiles.Update(sam.UserID, ProfileInput{CurrentPassword: "wrong", NewPassword: "newsecret"})
	assert.ErrorIs(t, err, util.ErrWrongPassword)

	_, err = e.profiles.Update(sam.UserID, ProfileInput{CurrentPassword: testPassword, NewPassword: "newsecret"})
	require.NoError(t, err)
	u, err := e.userRepo.FindByID(sam.UserID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("newsecret")))

	byEmail, err := e.profiles.GetByEmail("sam@school.edu")
	require.NoError(t, err)
	assert.Equal(t, sam.UserID, byEmail.ID)
	_, err = e.profiles.Get(9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestProfileAvatar(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sam := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)

	_, err := e.profiles.UpdateAvatar(ctx, sam.UserID, multipartFiles(t, upload{"avatar", "me.png", "plain text"})["avatar"][0])
	assert.ErrorIs(t, err, util.ErrInvalidFile)

	first, err := e.profiles.UpdateAvatar(ctx, sam.UserID, multipartFiles(t, upload{"avatar", "me.png", pngHeader})["avatar"][0])
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+first.Picture, first.AvatarURL)
	assert.FileExists(t, e.cfg.Storage.LocalPath+"/"+first.Picture)

	second, err := e.profiles.UpdateAvatar(ctx, sam.UserID, multipartFiles(t, upload{"avatar", "me2.png", pngHeader})["avatar"][0])
	require.NoError(t, err)
	assert.NotEqual(t, first.Picture, second.Picture)
	assert.NoFileExists(t, e.cfg.Storage.LocalPath+"/"+first.Picture)
}
