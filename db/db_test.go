package db

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"lab_borrow_portal/models"
)

// ConnectDB 自己完成迁移，调用方不用再跑 Migrate
func Test_ConnectDB_LeavesSchemaReady(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	gdb := ConnectDB(dsn)
	m := gdb.Migrator()

	for _, model := range []any{
		&models.User{},
		&models.Invite{},
		&models.Item{},
		&models.BorrowRequest{},
		&models.AuditLog{},
		&models.Maintenance{},
	} {
		assert.True(t, m.HasTable(model), "%T", model)
	}
	assert.True(t, m.HasColumn(&models.BorrowRequest{}, "RequesterCourse"))
	assert.True(t, m.HasColumn(&models.BorrowRequest{}, "RequesterYear"))
}
