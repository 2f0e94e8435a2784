package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/dnsoftware/mpm-mining-proxy/config"
	"github.com/dnsoftware/mpm-mining-proxy/internal/app"
	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/utils"
)

func main() {
	opts, err := config.ParseOptions(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	configFile := resolvePath(opts.ConfigFile)
	envFile := resolvePath(opts.EnvFile)

	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		log.Fatalf("Main config failed: %s", err.Error())
	}
	if opts.ShowVersion {
		fmt.Println(cfg.App.Name, cfg.App.Version)
		return
	}
	if err = cfg.ApplyOptions(opts); err != nil {
		log.Fatalf("Main config failed: %s", err.Error())
	}

	filePath := cfg.Log.File
	if filePath == "" {
		filePath, err = logger.GetLoggerMainLogPath()
		if err != nil {
			filePath = constants.AppLogFile
		}
	}
	env := logger.LogLevelDebug
	if cfg.App.Env == logger.LogLevelProduction {
		env = logger.LogLevelProduction
	}
	logger.InitLogger(env, filePath)
	defer logger.Log().Sync()

	if err = app.Run(context.Background(), cfg); err != nil {
		logger.Log().Error("app stopped with error: " + err.Error())
		os.Exit(1)
	}
}

// resolvePath относительный путь ищется от корня проекта, если он определяется
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	basePath, err := utils.GetProjectRoot(constants.ProjectRootAnchorFile)
	if err != nil {
		return path
	}
	return filepath.Join(basePath, path)
}
