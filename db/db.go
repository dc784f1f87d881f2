package db

import (
	"fmt"
	"lab_borrow_portal/models"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 只负责连库，不做迁移
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func ConnectDB(dsn string) *gorm.DB {
	db, err := Open(dsn)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return db
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Invite{},
		&models.Item{},
		&models.BorrowRequest{},
		&models.AuditLog{},
		&models.Maintenance{},
	); err != nil {
		return err
	}

	// 学生的列表：按借用日期倒序
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_requester_date_desc
	  ON %s (requester_id, borrow_date DESC, created_at DESC);
	`, models.BorrowRequestTable, models.BorrowRequestTable)).Error; err != nil {
		return err
	}

	// 管理端只看到达管理员阶段的申请
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_admin_stage_created_desc
	  ON %s (created_at DESC)
	  WHERE teacher_id = '' OR teacher_approved_at IS NOT NULL;
	`, models.BorrowRequestTable, models.BorrowRequestTable)).Error; err != nil {
		return err
	}

	// 状态只允许六个值
	if err := db.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s ADD CONSTRAINT %s_status_check
	    CHECK (status IN ('Pending-Teacher','Pending-Admin','Approved','Denied','Returned','Cancelled'));
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.BorrowRequestTable, models.BorrowRequestTable)).Error; err != nil {
		return err
	}

	return nil
}
