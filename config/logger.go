package config

// LoggerConfig 日志配置。
type LoggerConfig struct {
	Level            string   `json:"level" yaml:"level" env:"LOG_LEVEL" envDefault:"info"`                    // debug/info/warn/error
	Encoding         string   `json:"encoding" yaml:"encoding" env:"LOG_ENCODING" envDefault:"json"`           // json/console
	EnableColor      bool     `json:"enableColor" yaml:"enableColor" env:"LOG_COLOR" envDefault:"false"`       // console 模式下是否彩色输出
	Development      bool     `json:"development" yaml:"development" env:"LOG_DEVELOPMENT" envDefault:"false"` // 开发模式（error 级别附带堆栈）
	OutputPaths      []string `json:"outputPaths" yaml:"outputPaths" env:"LOG_OUTPUT_PATHS"`                   // 普通日志输出
	ErrorOutputPaths []string `json:"errorOutputPaths" yaml:"errorOutputPaths" env:"LOG_ERROR_OUTPUT_PATHS"`   // zap 内部错误输出
}

// DefaultLoggerConfig 返回日志配置。
// LOG_LEVEL 与原 Node 版本保持一致，默认 info。
func DefaultLoggerConfig() (LoggerConfig, error) {
	cfg, err := parseEnv[LoggerConfig]()
	if err != nil {
		return cfg, err
	}
	cfg.OutputPaths = compact(cfg.OutputPaths)
	cfg.ErrorOutputPaths = compact(cfg.ErrorOutputPaths)
	return cfg, nil
}
