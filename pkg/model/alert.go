// pkg/model/alert.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertEvent 告警事件 - 管道对外唯一可见的产物
type AlertEvent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index:idx_device_ts" json:"timestamp"` // 触发告警的记录时间戳
	DeviceID  string    `gorm:"type:varchar(64);index:idx_device_ts" json:"device_id"`
	RuleName  string    `gorm:"type:varchar(128);index" json:"rule_name"`
	Severity  Severity  `gorm:"type:varchar(20);index" json:"severity"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *AlertEvent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (AlertEvent) TableName() string {
	return "alert_events"
}
