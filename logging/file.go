package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileLogger returns a logger that writes like NewLogger and also appends JSON entries to a
// size rotated file at path. The returned closer releases the file.
func NewFileLogger(name, path string) (Logger, io.Closer) {
	cfg := NewLoggerConfig()
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
		Compress:   true,
	}

	fileEncoding := cfg.EncoderConfig
	fileEncoding.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(cfg.EncoderConfig), zapcore.Lock(os.Stdout), cfg.Level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoding), zapcore.AddSync(rotating), cfg.Level),
	)
	return &impl{zap.New(core).Sugar().Named(name), cfg.Level}, rotating
}
