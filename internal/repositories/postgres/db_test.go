package postgres

import (
	"testing"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection, otherwise each connection opens its own in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(models.Schema()...))
	return db
}

func seedMeeting(t *testing.T, db *gorm.DB) *models.Meeting {
	t.Helper()
	m := &models.Meeting{Title: "Weekly sync", MeetingType: "general", Duration: 61}
	require.NoError(t, NewMeetingRepo(db).Insert(t.Context(), m))
	return m
}
