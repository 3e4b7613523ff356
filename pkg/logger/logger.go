package logger

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var applicationName = "predator-core"

func InitLogger(configs *configs.AppConfigs) {
	if configs.Configs.ApplicationName != "" {
		applicationName = configs.Configs.ApplicationName
	}
	level, err := parseLevel(configs.Configs.ApplicationLogLevel)
	if err != nil {
		Panic("Incorrect log level", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().
		Timestamp().
		Str("app", applicationName).
		Logger()
	Info("Logger initialized!")
}

func parseLevel(logLevel string) (zerolog.Level, error) {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO", "":
		return zerolog.InfoLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "FATAL":
		return zerolog.FatalLevel, nil
	case "PANIC":
		return zerolog.PanicLevel, nil
	case "DISABLED":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("incorrect log level %s", logLevel)
	}
}

func Debug(message string) {
	log.Debug().Msg(message)
}

func Info(message string) {
	log.Info().Msg(message)
}

func Warn(message string, err error) {
	log.Warn().Err(err).Msg(message)
}

func Error(message string, err error) {
	log.Error().Err(err).Msg(message)
}

// PercentError logs roughly loggingPercent out of every hundred calls, 10 when unset.
func PercentError(message string, err error, loggingPercent int) {
	if loggingPercent == 0 {
		loggingPercent = 10
	}
	if rand.Intn(100)+1 <= loggingPercent {
		Error(message, err)
	}
}

func Panic(message string, err error) {
	log.Panic().Err(err).Msg(message)
}
