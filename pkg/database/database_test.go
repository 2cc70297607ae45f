package database

import (
	"fmt"
	"testing"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLiteMigrate(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
	db, err := InitDB(cfg, false)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, kind := range model.CommentKinds() {
		assert.True(t, db.Migrator().HasTable(string(kind)), kind)
	}
	assert.True(t, db.Migrator().HasTable(&model.QuizAttempt{}))
	assert.True(t, db.Migrator().HasTable(&model.AttendanceMark{}))
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}
