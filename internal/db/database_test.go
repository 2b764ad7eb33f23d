package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/church_members/internal/models"
)

func TestOpen_SQLiteFileCreatesDirAndMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "instance", "church_members.db")

	gdb, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(ctx, gdb))
	require.NoError(t, Ping(ctx, gdb))

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m))
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, DriverSQLite, "")
	require.Error(t, err)

	_, err = Open(ctx, "oracle", "whatever")
	require.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestPingOrClose_ClosesPoolOnFailure(t *testing.T) {
	gdb, err := gorm.Open(postgres.Open("host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1"),
		&gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	err = pingOrClose(context.Background(), sqlDB)
	require.ErrorContains(t, err, "ping db")
	assert.ErrorContains(t, sqlDB.Ping(), "database is closed")
}
