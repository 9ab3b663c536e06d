// pkg/database/timescaledb.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"StationAlert/pkg/config"
	"StationAlert/pkg/model"
)

// TimescaleDB TimescaleDB数据库连接
// 遥测超表用原生 SQL 读取，告警表走 gorm
type TimescaleDB struct {
	db  *sql.DB
	orm *gorm.DB
}

// NewTimescaleDB 创建新的TimescaleDB连接
func NewTimescaleDB(cfg *config.Config) (*TimescaleDB, error) {
	dbCfg := cfg.Database.TimescaleDB

	// 构建连接字符串
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.DBName, dbCfg.SSLMode,
	)

	// 连接数据库
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("测试数据库连接失败: %w", err)
	}

	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化ORM失败: %w", err)
	}

	// 告警表结构迁移
	if err := orm.AutoMigrate(&model.AlertEvent{}); err != nil {
		return nil, fmt.Errorf("迁移告警表失败: %w", err)
	}

	return &TimescaleDB{db: db, orm: orm}, nil
}

// Close 关闭数据库连接
func (t *TimescaleDB) Close() error {
	return t.db.Close()
}
