package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"chanvault/internal/config"
)

const (
	logLevelEnvKey = "CHANVAULT_LOG_LEVEL"

	logFileMaxSizeMB  = 50
	logFileMaxBackups = 5
	logFileMaxAgeDays = 30
)

// logOutput is where the default logger writes; tests swap it.
var logOutput io.Writer = os.Stderr

type levelSource int

const (
	levelFromDefault levelSource = iota
	levelFromConfig
	levelFromEnv
	levelFromFlag
)

// levelChoice is the first non-empty level in flag, env, config order.
type levelChoice struct {
	raw    string
	source levelSource
}

func chooseLogLevel(flagLevel, envLevel, configLevel string) levelChoice {
	candidates := []levelChoice{
		{raw: flagLevel, source: levelFromFlag},
		{raw: envLevel, source: levelFromEnv},
		{raw: configLevel, source: levelFromConfig},
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.raw) != "" {
			return c
		}
	}
	return levelChoice{source: levelFromDefault}
}

// configureLoggerForCLI installs the process logger. A bad --log-level is an
// error; a bad env or config level falls back to the default and returns a
// warning for stderr.
func configureLoggerForCLI(flagLevel, configLevel, logFile string) (string, error) {
	out := logWriter(logFile)
	choice := chooseLogLevel(flagLevel, os.Getenv(logLevelEnvKey), configLevel)

	level, err := parseLogLevel(choice.raw)
	warning := ""
	if err != nil {
		switch choice.source {
		case levelFromFlag:
			return "", fmt.Errorf("invalid --log-level %q", choice.raw)
		case levelFromEnv:
			warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, choice.raw, config.DefaultLogLevel)
		case levelFromConfig:
			warning = fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", choice.raw, config.DefaultLogLevel)
		}
		level, _ = parseLogLevel("")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return warning, nil
}

func logWriter(logFile string) io.Writer {
	path := strings.TrimSpace(logFile)
	if path == "" {
		return logOutput
	}
	return io.MultiWriter(logOutput, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	})
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		value = config.DefaultLogLevel
	case "warning":
		value = "warn"
	}

	if n, err := strconv.Atoi(value); err == nil {
		return slog.Level(n), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}
