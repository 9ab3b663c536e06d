// pkg/model/record.go
package model

import "time"

// RawRow 采集层交付的一行原始数据（列名 -> 原始值）
// CSV 来源的值是字符串，TSDB 来源的值保留驱动返回的类型
type RawRow map[string]interface{}

// Record 归一化后的单条遥测记录
// Fields 的值为 float64（可解析为数值时）或 string
type Record struct {
	DeviceID  string                 `json:"device_id"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields"`
}
