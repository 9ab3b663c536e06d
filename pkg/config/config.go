// pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "30s"、"5m" 这类时长字面量的配置字段
// yaml.v3 不认识 time.Duration，这里显式解析
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("时长 %q 非法: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转换为标准库时长
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config 应用配置
// 所有组件通过构造函数显式接收配置，不读取进程级默认值
type Config struct {
	App struct {
		Name      string `yaml:"name"`
		Env       string `yaml:"env"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"app"`

	Data struct {
		Source       string   `yaml:"source"`   // csv / tsdb / nats
		CSVPath      string   `yaml:"csv_path"` // source=csv 时的输入文件
		SQL          string   `yaml:"sql"`      // source=tsdb 时的查询语句
		MappingPath  string   `yaml:"mapping_path"`
		KeyColumn    string   `yaml:"key_column"`    // 复合主键列，默认 PK
		BitColumn    string   `yaml:"bit_column"`    // 位域列，默认 bit
		TimeColumn   string   `yaml:"time_column"`   // 列式行的时间列，默认 ts
		DeviceColumn string   `yaml:"device_column"` // 列式行的设备列，默认 equ_code
		Lateness     Duration `yaml:"lateness"`      // 流式乱序容忍窗口
	} `yaml:"data"`

	Rules struct {
		Path string `yaml:"path"`
	} `yaml:"rules"`

	Engine struct {
		Workers    int `yaml:"workers"`     // 设备哈希分片的 worker 数
		BufferSize int `yaml:"buffer_size"` // 每个 worker 的输入队列长度
	} `yaml:"engine"`

	Database struct {
		TimescaleDB struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"timescaledb"`
	} `yaml:"database"`

	NATS struct {
		URL              string `yaml:"url"`
		TelemetrySubject string `yaml:"telemetry_subject"`
		AlertsSubject    string `yaml:"alerts_subject"`
	} `yaml:"nats"`

	Output struct {
		Path string `yaml:"path"` // 告警 CSV 报告输出路径
	} `yaml:"output"`

	Scheduler struct {
		BatchSpec string `yaml:"batch_spec"` // cron 表达式，周期性批量评估
	} `yaml:"scheduler"`

	Metrics struct {
		Port string `yaml:"port"` // 引擎进程的 /metrics 端口，空表示不暴露
	} `yaml:"metrics"`

	API struct {
		Port         string   `yaml:"port"`
		ReadTimeout  Duration `yaml:"read_timeout"`
		WriteTimeout Duration `yaml:"write_timeout"`
	} `yaml:"api"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量覆盖
	if err := overrideFromEnv(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults 填充未配置项的默认值
func applyDefaults(config *Config) {
	if config.Data.KeyColumn == "" {
		config.Data.KeyColumn = "PK"
	}
	if config.Data.BitColumn == "" {
		config.Data.BitColumn = "bit"
	}
	if config.Data.TimeColumn == "" {
		config.Data.TimeColumn = "ts"
	}
	if config.Data.DeviceColumn == "" {
		config.Data.DeviceColumn = "equ_code"
	}
	if config.Data.Lateness <= 0 {
		config.Data.Lateness = Duration(30 * time.Second)
	}
	if config.Engine.Workers <= 0 {
		config.Engine.Workers = 4
	}
	if config.Engine.BufferSize <= 0 {
		config.Engine.BufferSize = 256
	}
	if config.App.LogLevel == "" {
		config.App.LogLevel = "info"
	}
	if config.NATS.TelemetrySubject == "" {
		config.NATS.TelemetrySubject = "telemetry.rows"
	}
	if config.NATS.AlertsSubject == "" {
		config.NATS.AlertsSubject = "alerts.events"
	}
	if config.API.ReadTimeout <= 0 {
		config.API.ReadTimeout = Duration(10 * time.Second)
	}
	if config.API.WriteTimeout <= 0 {
		config.API.WriteTimeout = Duration(10 * time.Second)
	}
}

// overrideFromEnv 使用环境变量覆盖配置
// 设置了但无法解析的变量是配置错误，拒绝启动
func overrideFromEnv(config *Config) error {
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		config.App.LogLevel = env
	}

	// 数据库配置
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Database.TimescaleDB.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		port, err := strconv.Atoi(env)
		if err != nil || port <= 0 {
			return fmt.Errorf("环境变量 DB_PORT %q 非法", env)
		}
		config.Database.TimescaleDB.Port = port
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.Database.TimescaleDB.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Database.TimescaleDB.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Database.TimescaleDB.DBName = env
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
	}

	// API配置
	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}
	if env := os.Getenv("METRICS_PORT"); env != "" {
		config.Metrics.Port = env
	}
	return nil
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
