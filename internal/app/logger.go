package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger логгер сервера: JSON в production, цветной консольный иначе.
// level переопределяет уровень ("debug", "warn", ...), пустой оставляет дефолт окружения.
func NewLogger(env, level string) *zap.Logger {
	return build(baseConfig(env, level), []string{"stdout"}, zap.String("service", "scholium"))
}

// NewCLILogger пишет в stderr, чтобы не смешиваться с выводом команды
func NewCLILogger(level string) *zap.Logger {
	config := baseConfig("development", level)
	config.DisableCaller = true
	config.DisableStacktrace = true
	return build(config, []string{"stderr"})
}

func baseConfig(env, level string) zap.Config {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			config.Level = zap.NewAtomicLevelAt(parsed)
		}
	}
	return config
}

func build(config zap.Config, outputs []string, fields ...zap.Field) *zap.Logger {
	config.OutputPaths = outputs
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger.With(fields...)
}
