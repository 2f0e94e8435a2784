package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/jrick/logrotate/rotator"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/utils"
)

const LogLevelProduction = "production"
const LogLevelDebug = "debug"

const (
	rotateThresholdKB = 10 * 1024 // размер файла лога, после которого он ротируется
	rotateMaxRolls    = 3         // сколько старых файлов хранить
)

type Logger struct {
	*zap.Logger
}

var (
	instance *Logger
	once     sync.Once
)

func getLogLevel(env string) zapcore.Level {
	if env == LogLevelProduction {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// getFileWriter файл лога с ротацией по размеру
func getFileWriter(filePath string) zapcore.WriteSyncer {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		panic(err)
	}
	r, err := rotator.New(filePath, rotateThresholdKB, false, rotateMaxRolls)
	if err != nil {
		panic(err)
	}
	return zapcore.AddSync(r)
}

func InitLogger(env string, filePath string) {
	once.Do(func() {
		logLevel := getLogLevel(env)
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		if env == LogLevelProduction {
			encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		}
		encoder := zapcore.NewJSONEncoder(encoderConfig)
		core := zapcore.NewTee(
			zapcore.NewCore(encoder, getFileWriter(filePath), logLevel),
		)

		if env != LogLevelProduction {
			// Добавить вывод в консоль в режиме отладки
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
			consoleCore := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), logLevel)
			core = zapcore.NewTee(core, consoleCore)
		}

		logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		instance = &Logger{logger}
	})
}

func Log() *Logger {
	if instance == nil {
		panic("Logger is not initialized. Call InitLogger() before using Log()")
	}
	return instance
}

// Nop логгер без вывода, для тестов и компонентов без настроенного логирования
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

func GetLoggerMainLogPath() (string, error) {
	dir, err := utils.GetProjectRoot(constants.ProjectRootAnchorFile)
	if err != nil {
		return "", err
	}
	filePath := dir + "/" + constants.AppLogFile

	return filePath, nil
}

func GetLoggerTestLogPath() (string, error) {
	dir, err := utils.GetProjectRoot(constants.ProjectRootAnchorFile)
	if err != nil {
		return "", err
	}
	filePath := dir + "/" + constants.TestLogFile

	return filePath, nil
}
