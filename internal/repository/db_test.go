package repository

import (
	"fmt"
	"testing"

	"github.com/lshigami/fluency/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Passage{},
		&model.Question{},
		&model.Recording{},
		&model.Assessment{},
		&model.Response{},
		&model.AIEvaluation{},
	))
	return db
}

func seedRecording(t *testing.T, db *gorm.DB) (*model.Passage, *model.Recording) {
	t.Helper()
	passage := &model.Passage{
		Title:    "Djur",
		Text:     "Hunden och katten leker i trädgården.",
		Language: "sv-SE",
		Questions: []model.Question{
			{QuestionText: "Vilket djur skäller?", CorrectAnswer: "hund", Weight: 1, OrderInPassage: 1},
			{QuestionText: "Vilket djur jamar?", CorrectAnswer: "katt", Weight: 2, OrderInPassage: 2},
		},
	}
	require.NoError(t, db.Create(passage).Error)

	recording := &model.Recording{PassageID: passage.ID, UserID: 7, AudioHandle: "audio/rec-1.wav", DurationSeconds: 12.5}
	require.NoError(t, db.Create(recording).Error)
	return passage, recording
}
