// pkg/output/report.go
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StationAlert/pkg/model"
)

// 告警报告的列顺序是对外契约的一部分
var reportHeader = []string{"timestamp", "device_id", "rule_name", "severity", "message"}

// WriteCSVReport 把一次运行的告警写成 CSV 报告
func WriteCSVReport(path string, alerts []model.AlertEvent) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报告文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return fmt.Errorf("写入报告表头失败: %w", err)
	}
	for _, a := range alerts {
		row := []string{
			a.Timestamp.Format(time.RFC3339),
			a.DeviceID,
			a.RuleName,
			string(a.Severity),
			a.Message,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入报告行失败: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
