package database

import (
	"testing"

	"github.com/lshigami/fluency/config"
	"github.com/lshigami/fluency/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Database{Host: "db", Port: "5432", User: "fluency", Password: "secret", Name: "reading", SSLMode: "disable"})

	assert.Equal(t, "host=db user=fluency password=secret dbname=reading port=5432 sslmode=disable TimeZone=UTC", dsn)
}

func TestAutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:automigrate?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	// running twice must be harmless
	require.NoError(t, AutoMigrate(db))

	for _, m := range []any{&model.Passage{}, &model.Question{}, &model.Recording{}, &model.Assessment{}, &model.Response{}, &model.AIEvaluation{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&model.AIEvaluation{}, "RecordingID"))
}
