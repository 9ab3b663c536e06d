// pkg/ingest/csv.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"StationAlert/pkg/model"
)

// ReadCSV 读取一个 CSV 文件为原始行序列
// 首行是列头；非 UTF-8 文件按 GBK 转码后重试
func ReadCSV(path string, logger *zap.Logger) ([]model.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败: %w", err)
	}
	if !utf8.Valid(data) {
		decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("数据文件转码失败: %w", err)
		}
		logger.Warn("数据文件非UTF-8编码，已按GBK转码", zap.String("path", path))
		data = decoded
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true
	// 位域列的子标志数量可能不一致
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析CSV失败: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("数据文件为空: %s", path)
	}

	header := records[0]
	rows := make([]model.RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(model.RawRow, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[strings.TrimSpace(col)] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	logger.Info("CSV数据加载完成", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}
