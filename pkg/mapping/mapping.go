// pkg/mapping/mapping.go
package mapping

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrInvalidMapping 映射表存在但结构非法（缺少必需列）
var ErrInvalidMapping = errors.New("invalid mapping table")

// 映射表的必需列
const (
	colIndex = "index"
	colName  = "chinese_name"
)

// Resolver 字段码到展示名的映射表
// 启动时一次性加载，运行期间只读；重载只能整表替换
type Resolver struct {
	table map[string]string
}

// Load 从 CSV 或 JSON 文件加载映射表
// 文件不存在时退化为恒等映射并打印警告，不中断管道
// 文件存在但缺少必需列时返回 ErrInvalidMapping
func Load(path string, log *zap.Logger) (*Resolver, error) {
	r := &Resolver{table: make(map[string]string)}

	if path == "" {
		return r, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn("映射文件不存在，使用恒等映射", zap.String("path", path))
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取映射文件失败: %w", err)
	}
	// 现场数据常见 GBK 编码，UTF-8 校验失败时转码
	if !utf8.Valid(data) {
		decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("映射文件转码失败: %w", err)
		}
		log.Warn("映射文件非UTF-8编码，已按GBK转码", zap.String("path", path))
		data = decoded
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := r.loadJSON(data); err != nil {
			return nil, err
		}
	} else {
		if err := r.loadCSV(data); err != nil {
			return nil, err
		}
	}

	log.Info("映射表加载完成", zap.String("path", path), zap.Int("entries", len(r.table)))
	return r, nil
}

func (r *Resolver) loadJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: 解析JSON失败: %v", ErrInvalidMapping, err)
	}
	for code, name := range m {
		r.put(code, name)
	}
	return nil
}

func (r *Resolver) loadCSV(data []byte) error {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("%w: 解析CSV失败: %v", ErrInvalidMapping, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: 映射文件为空", ErrInvalidMapping)
	}

	// 定位必需列
	idxCol, nameCol := -1, -1
	for i, h := range records[0] {
		switch strings.TrimSpace(h) {
		case colIndex:
			idxCol = i
		case colName:
			nameCol = i
		}
	}
	if idxCol < 0 || nameCol < 0 {
		return fmt.Errorf("%w: 缺少必需列 %q 或 %q", ErrInvalidMapping, colIndex, colName)
	}

	for _, row := range records[1:] {
		if len(row) <= idxCol || len(row) <= nameCol {
			continue
		}
		r.put(row[idxCol], row[nameCol])
	}
	return nil
}

// put 清洗后写入一条映射；空名称条目在加载时丢弃
func (r *Resolver) put(code, name string) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return
	}
	r.table[code] = name
}

// Resolve 返回映射后的展示名，未映射的字段码原样返回
func (r *Resolver) Resolve(code string) string {
	if name, ok := r.table[code]; ok {
		return name
	}
	return code
}

// Apply 重命名字段集中存在于映射表的键，未映射的键原样保留
func (r *Resolver) Apply(fields map[string]interface{}) map[string]interface{} {
	if len(r.table) == 0 {
		return fields
	}
	renamed := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		renamed[r.Resolve(k)] = v
	}
	return renamed
}

// Len 映射条目数
func (r *Resolver) Len() int {
	return len(r.table)
}
