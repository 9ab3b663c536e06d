// pkg/database/telemetry.go
package database

import (
	"context"
	"fmt"

	"StationAlert/pkg/model"
)

// TelemetryDB 遥测超表的读取接口
type TelemetryDB struct {
	t *TimescaleDB
}

func (t *TimescaleDB) Telemetry() *TelemetryDB {
	return &TelemetryDB{t: t}
}

// Query 执行一条 SELECT 并把结果行转成原始行序列（列名 -> 驱动返回值）
// 列名归一化（ts -> 时间戳、equ_code -> 设备ID）交给归一化器的列清单处理
func (d *TelemetryDB) Query(ctx context.Context, query string) ([]model.RawRow, error) {
	rows, err := d.t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询遥测数据失败: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("获取结果列失败: %w", err)
	}

	var result []model.RawRow
	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("扫描行数据失败: %w", err)
		}
		row := make(model.RawRow, len(columns))
		for i, col := range columns {
			v := values[i]
			// pgx 对 text 列可能返回 []byte
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("迭代行数据失败: %w", err)
	}

	return result, nil
}
