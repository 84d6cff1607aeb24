package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	defaultServiceName  = "openrouter-stats"
	defaultLogFileName  = "collector.log"
	containerLogPath    = "/app/data/logs/collector.log"
	defaultRotateSizeMB = 100
	defaultRotateFiles  = 10
	defaultRotateDays   = 30
)

type OutputOptions struct {
	ToStdout bool
	ToFile   bool
	FilePath string
}

type RotationOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

type InitOptions struct {
	Level           string
	Format          string
	ServiceName     string
	Environment     string
	Caller          bool
	StacktraceLevel string
	Output          OutputOptions
	Rotation        RotationOptions
}

func (o InitOptions) normalized() InitOptions {
	out := o

	out.Level = strings.ToLower(strings.TrimSpace(out.Level))
	if _, ok := parseLevel(out.Level); !ok || out.Level == "" {
		out.Level = "info"
	}

	out.Format = strings.ToLower(strings.TrimSpace(out.Format))
	if out.Format != "console" && out.Format != "json" {
		out.Format = "json"
	}

	if strings.TrimSpace(out.ServiceName) == "" {
		out.ServiceName = defaultServiceName
	}
	if strings.TrimSpace(out.Environment) == "" {
		out.Environment = "production"
	}

	out.StacktraceLevel = strings.ToLower(strings.TrimSpace(out.StacktraceLevel))
	if _, ok := parseStacktraceLevel(out.StacktraceLevel); !ok || out.StacktraceLevel == "" {
		out.StacktraceLevel = "error"
	}

	if !out.Output.ToStdout && !out.Output.ToFile {
		out.Output.ToStdout = true
	}
	if out.Output.ToFile {
		out.Output.FilePath = resolveLogFilePath(out.Output.FilePath)
	}

	if out.Rotation.MaxSizeMB <= 0 {
		out.Rotation.MaxSizeMB = defaultRotateSizeMB
	}
	if out.Rotation.MaxBackups < 0 {
		out.Rotation.MaxBackups = defaultRotateFiles
	}
	if out.Rotation.MaxAgeDays < 0 {
		out.Rotation.MaxAgeDays = defaultRotateDays
	}

	return out
}

// resolveLogFilePath keeps relative paths inside DATA_DIR when one is set so
// container deployments write logs onto the mounted volume.
func resolveLogFilePath(raw string) string {
	path := strings.TrimSpace(raw)
	if path == "" {
		if dataDir := strings.TrimSpace(os.Getenv("DATA_DIR")); dataDir != "" {
			return filepath.Join(dataDir, "logs", defaultLogFileName)
		}
		return containerLogPath
	}
	if filepath.IsAbs(path) {
		return path
	}
	if dataDir := strings.TrimSpace(os.Getenv("DATA_DIR")); dataDir != "" {
		return filepath.Join(dataDir, path)
	}
	return path
}

func bootstrapOptions() InitOptions {
	return InitOptions{
		Level:       "info",
		Format:      "console",
		ServiceName: defaultServiceName,
		Environment: "bootstrap",
		Caller:      true,
		Output:      OutputOptions{ToStdout: true},
	}
}

func parseLevel(raw string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

func parseStacktraceLevel(raw string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error", "":
		return zapcore.ErrorLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	case "disabled", "none", "off":
		// InvalidLevel disables stacktraces entirely.
		return zapcore.InvalidLevel, true
	default:
		return zapcore.ErrorLevel, false
	}
}
