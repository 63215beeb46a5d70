package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/urfave/cli.v1"

	"github.com/eigerco/statementbank/pkg/log"
)

const (
	defaultDecimals = 18
	defaultCacheMB  = 64
)

// Config is everything the command line can tune.
type Config struct {
	DataDir   string
	CacheMB   int64
	LogLevel  zerolog.Level
	LogFormat log.LoggerType
	// Decimals is the number of decimal places amounts are shown with.
	Decimals int32
}

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory holding the ledger database",
		Value: defaultDataDir(),
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "Database block cache size in MB",
		Value: defaultCacheMB,
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log.level",
		Usage: "Log level (trace|debug|info|warn|error)",
		Value: "info",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log.format",
		Usage: "Log output format (text|json)",
		Value: "text",
	}
	decimalsFlag = cli.IntFlag{
		Name:  "units.decimals",
		Usage: "Decimal places used when printing amounts (18 shows ether, 0 shows wei)",
		Value: defaultDecimals,
	}
)

func globalFlags() []cli.Flag {
	return []cli.Flag{dataDirFlag, cacheFlag, logLevelFlag, logFormatFlag, decimalsFlag}
}

func defaultConfig() Config {
	return Config{
		DataDir:   defaultDataDir(),
		CacheMB:   defaultCacheMB,
		LogLevel:  zerolog.InfoLevel,
		LogFormat: log.ConsoleLogger,
		Decimals:  defaultDecimals,
	}
}

// makeConfig merges the defaults with whatever flags were set on ctx.
func makeConfig(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = resolvePath(ctx.String(dataDirFlag.Name))
	}
	if ctx.IsSet(cacheFlag.Name) {
		mb := ctx.Int(cacheFlag.Name)
		if mb < 0 {
			return Config{}, fmt.Errorf("invalid --%s %d", cacheFlag.Name, mb)
		}
		cfg.CacheMB = int64(mb)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		lvl, err := log.ParseLogLevel(ctx.String(logLevelFlag.Name))
		if err != nil {
			return Config{}, fmt.Errorf("invalid --%s: %w", logLevelFlag.Name, err)
		}
		cfg.LogLevel = lvl
	}
	if ctx.IsSet(logFormatFlag.Name) {
		typ, err := log.ParseLoggerType(ctx.String(logFormatFlag.Name))
		if err != nil {
			return Config{}, fmt.Errorf("invalid --%s: %w", logFormatFlag.Name, err)
		}
		cfg.LogFormat = typ
	}
	if ctx.IsSet(decimalsFlag.Name) {
		d := ctx.Int(decimalsFlag.Name)
		if d < 0 || d > 36 {
			return Config{}, fmt.Errorf("invalid --%s %d", decimalsFlag.Name, d)
		}
		cfg.Decimals = int32(d)
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".statementbank"
	}
	return filepath.Join(home, ".statementbank")
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(p)
}
