package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus.Entry so call sites get structured fields plus the
// context helpers in this package.
type Logger struct {
	*logrus.Entry
}

// Config is the programmatic logger configuration used by the batch
// commands, which pick their own service name and format.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // nil means stdout
	ServiceName string
}

// EnvConfig extends Config with deployment knobs read from the
// environment: log file rotation and file-only output. The api server
// uses this form so operators can redirect logs without a rebuild.
type EnvConfig struct {
	Level       string
	Format      string
	Output      io.Writer // highest priority, overrides file settings
	ServiceName string

	Environment string // local, dev, prod

	LogFile     string
	LogFileOnly bool

	MaxSize    int // MB before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the defaults used when New receives nil.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "capprep",
	}
}

// LoadFromEnv reads logger settings from environment variables, falling
// back to defaults suitable for local runs.
func LoadFromEnv() *EnvConfig {
	return &EnvConfig{
		Level:       envString("LOG_LEVEL", "info"),
		Format:      envString("LOG_FORMAT", "json"),
		ServiceName: envString("SERVICE_NAME", "capprep"),
		Environment: envString("APP_ENV", "local"),

		LogFile:     envString("LOG_FILE", "/var/log/capprep/app.log"),
		LogFileOnly: envBool("LOG_FILE_ONLY", false),

		MaxSize:    envInt("LOG_MAX_SIZE", 100),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 7),
		MaxAge:     envInt("LOG_MAX_AGE", 30),
		Compress:   envBool("LOG_COMPRESS", true),
	}
}

// New builds a Logger from a Config. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	return build(cfg.Level, cfg.Format, cfg.ServiceName, out)
}

// NewFromEnv builds a Logger from an EnvConfig, wiring lumberjack file
// rotation for non-local environments. A nil cfg loads the environment.
func NewFromEnv(cfg *EnvConfig) *Logger {
	if cfg == nil {
		cfg = LoadFromEnv()
	}

	out := cfg.Output
	if out == nil {
		var writers []io.Writer

		if cfg.Environment == "local" || !cfg.LogFileOnly {
			writers = append(writers, os.Stdout)
		}

		if cfg.Environment != "local" && cfg.LogFile != "" {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
			writers = append(writers, fileWriter)

			rotatorMu.Lock()
			rotator = fileWriter
			rotatorMu.Unlock()
		}

		if len(writers) == 0 {
			writers = append(writers, os.Stdout)
		}

		out = io.MultiWriter(writers...)
	}

	return build(cfg.Level, cfg.Format, cfg.ServiceName, out)
}

// NewDefault builds a Logger from the environment. Handy in tests and
// small tools that do not care about the service name.
func NewDefault() *Logger {
	return NewFromEnv(nil)
}

func build(level, format, serviceName string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetReportCaller(true)
	log.SetFormatter(formatterFor(format))

	return &Logger{Entry: log.WithField("service", serviceName)}
}

// rotator holds the active lumberjack writer so Sync can close it.
var (
	rotator   io.Closer
	rotatorMu sync.Mutex
)

// Sync closes the rotating log file, if one was opened. Call it via
// defer in main so the final lines are flushed on shutdown.
func Sync() error {
	rotatorMu.Lock()
	defer rotatorMu.Unlock()

	if rotator != nil {
		return rotator.Close()
	}
	return nil
}

// WithFields returns a Logger carrying the extra fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a Logger carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a Logger carrying the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

func formatterFor(format string) logrus.Formatter {
	if strings.ToLower(format) == "text" {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: shortCaller,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: shortCaller,
	}
}

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// shortCaller trims caller info to package-qualified function and
// basename:line, keeping log lines readable.
func shortCaller(frame *runtime.Frame) (string, string) {
	fn := frame.Function
	if idx := strings.LastIndex(fn, "/"); idx != -1 {
		fn = fn[idx+1:]
	}
	return fn, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
