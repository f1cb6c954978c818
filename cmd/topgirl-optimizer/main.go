package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/topgirl-optimizer/internal/config"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage: topgirl-optimizer [flags] <command> [args]

commands:
  list                      list buildings, highest income first
  create field=value ...    add a building (name is required)
  update <id> field=value   change the given fields of a building
  delete <id>               remove a building after confirmation
  levelup <id>              advance a building by one level
  params                    show the parameters the next run starts from
  optimize [field=value]    run the optimizer; fields: money, gold, trade_x, trade_y, session_seconds
  serve                     start the browser panel

building fields: %s

flags:
`

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "console"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	// Command output goes to stdout; keep logs off it.
	config.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	envLocation := flag.String("env", constants.DefaultEnvFile, "path to environment file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, yaml, xlsx")
	outputFile := flag.String("out", "", "write output to this file instead of stdout")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	query := flag.String("q", "", "filter buildings by name or id")
	assumeYes := flag.Bool("yes", false, "delete without asking for confirmation")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, joinFields())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conf, err := config.LoadConfiguration(*configLocation, *envLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	// Command line overrides, applied before validation
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if *outputFile != "" {
		conf.Output.File = *outputFile
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	a, err := newApp(conf, logger)
	if err != nil {
		logger.Fatal("failed to initialize",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer a.close()

	a.query = *query
	a.assumeYes = *assumeYes

	if err := a.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Fatal("command failed",
			zap.String("op", "main"),
			zap.String("command", flag.Arg(0)),
			zap.Error(err),
		)
	}
}
