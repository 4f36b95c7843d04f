package database

import (
	"bytes"
	"path/filepath"
	"testing"

	"inspectsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

func TestOpen(t *testing.T) {
	t.Run("Should open sqlite file and migrate tables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(Options{URL: "sqlite://" + path})
		require.NoError(t, err)
		defer Close(db)

		assert.True(t, db.Migrator().HasTable(&models.KVEntry{}))
		assert.True(t, db.Migrator().HasTable(&models.SyncRun{}))
	})

	t.Run("Should reject unsupported URL", func(t *testing.T) {
		_, err := Open(Options{URL: "mysql://localhost/db"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database URL format")
	})

	t.Run("Should add sqlite locking parameters", func(t *testing.T) {
		assert.Equal(t, "/tmp/a.db?_txlock=immediate&_busy_timeout=5000", sqliteDSN("/tmp/a.db"))
		assert.Equal(t, "/tmp/a.db?cache=shared&_txlock=immediate&_busy_timeout=5000", sqliteDSN("/tmp/a.db?cache=shared"))
	})

	t.Run("Should not report absent rows as errors", func(t *testing.T) {
		var buf bytes.Buffer
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(&buf), zapcore.DebugLevel)
		defer zap.ReplaceGlobals(zap.New(core))()

		db, err := Open(Options{URL: "sqlite://" + filepath.Join(t.TempDir(), "test.db")})
		require.NoError(t, err)
		defer Close(db)

		var entry models.KVEntry
		err = db.Where("key = ?", "missing").First(&entry).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.NotContains(t, buf.String(), "record not found")
	})

	t.Run("Should tolerate closing nil handle", func(t *testing.T) {
		assert.NoError(t, Close(nil))
	})
}
