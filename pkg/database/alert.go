// pkg/database/alert.go
package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"StationAlert/pkg/model"
)

type AlertDB struct {
	db *gorm.DB
}

func (t *TimescaleDB) Alert() *AlertDB {
	return &AlertDB{db: t.orm}
}

func (a *AlertDB) Save(alert *model.AlertEvent) error {
	if err := a.db.Create(alert).Error; err != nil {
		return fmt.Errorf("保存告警事件失败: %w", err)
	}
	return nil
}

// SaveBatch 批量保存一次运行产生的告警
func (a *AlertDB) SaveBatch(alerts []model.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := a.db.CreateInBatches(alerts, 100).Error; err != nil {
		return fmt.Errorf("批量保存告警事件失败: %w", err)
	}
	return nil
}

func (a *AlertDB) GetByID(alertID string) (*model.AlertEvent, error) {
	var alert model.AlertEvent
	err := a.db.First(&alert, "id = ?", alertID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("告警事件不存在")
		}
		return nil, fmt.Errorf("获取告警事件失败: %w", err)
	}
	return &alert, nil
}

// GetRecent 查询最近的告警，device / rule 为空表示不过滤
func (a *AlertDB) GetRecent(deviceID, ruleName string, limit int) ([]*model.AlertEvent, error) {
	var alerts []*model.AlertEvent
	query := a.db.Model(&model.AlertEvent{})

	if deviceID != "" {
		query = query.Where("device_id = ?", deviceID)
	}
	if ruleName != "" {
		query = query.Where("rule_name = ?", ruleName)
	}

	err := query.Order("timestamp DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("查询告警事件失败: %w", err)
	}
	return alerts, nil
}

// CountSince 统计某时刻之后的告警数，按严重程度分组
func (a *AlertDB) CountSince(since time.Time) (map[model.Severity]int64, error) {
	type row struct {
		Severity model.Severity
		Count    int64
	}
	var rows []row
	err := a.db.Model(&model.AlertEvent{}).
		Select("severity, count(*) as count").
		Where("timestamp >= ?", since).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计告警事件失败: %w", err)
	}

	counts := make(map[model.Severity]int64, len(rows))
	for _, r := range rows {
		counts[r.Severity] = r.Count
	}
	return counts, nil
}
