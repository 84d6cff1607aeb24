package logger

import (
	"github.com/johnbean393/openrouter-inference-stats/internal/config"
)

// OptionsFromConfig maps the loaded log configuration onto InitOptions.
func OptionsFromConfig(cfg *config.Config) InitOptions {
	if cfg == nil {
		return bootstrapOptions()
	}
	lc := cfg.Log
	return InitOptions{
		Level:           lc.Level,
		Format:          lc.Format,
		ServiceName:     lc.ServiceName,
		Environment:     lc.Environment,
		Caller:          lc.Caller,
		StacktraceLevel: lc.StacktraceLevel,
		Output: OutputOptions{
			ToStdout: lc.Output.ToStdout,
			ToFile:   lc.Output.ToFile,
			FilePath: lc.Output.FilePath,
		},
		Rotation: RotationOptions{
			MaxSizeMB:  lc.Rotation.MaxSizeMB,
			MaxBackups: lc.Rotation.MaxBackups,
			MaxAgeDays: lc.Rotation.MaxAgeDays,
			Compress:   lc.Rotation.Compress,
			LocalTime:  lc.Rotation.LocalTime,
		},
	}
}
