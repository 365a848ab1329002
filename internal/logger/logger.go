package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the application logger
type Options struct {
	Level string
	Dev   bool
	// File, when set, receives a daily-rotated copy of the log stream.
	File string
}

func levelFromString(l string, dev bool) zapcore.Level {
	switch l {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	if dev {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// New builds a *zap.Logger. Development mode uses the console encoder.
func New(opts Options) (*zap.Logger, error) {
	lvl := levelFromString(opts.Level, opts.Dev)

	var encoder zapcore.Encoder
	if opts.Dev {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		rotator, err := newRotator(opts.File)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func newRotator(path string) (*rotatelogs.RotateLogs, error) {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return rotatelogs.New(
		base+".%Y%m%d"+ext,
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
}
