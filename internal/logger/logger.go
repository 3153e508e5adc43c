package logger

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// Init configures the global zerolog logger. Only the first call has effect.
func Init(appName, logLevel string) {
	once.Do(func() {
		if appName == "" {
			appName = "medscan-api"
		}
		level, err := parseLevel(logLevel)
		if err != nil {
			log.Warn().Err(err).Msg("Falling back to INFO log level")
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)

		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			parts := strings.Split(file, "/")
			return parts[len(parts)-1] + ":" + strconv.Itoa(line)
		}

		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "02-01-2006 15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-6s", i))
			},
			FieldsExclude: []string{"app"},
		}).With().Timestamp().Caller().Str("app", appName).Logger()

		log.Info().Str("level", level.String()).Msg("Logger initialized")
	})
}

func parseLevel(logLevel string) (zerolog.Level, error) {
	switch strings.ToUpper(logLevel) {
	case "", "INFO":
		return zerolog.InfoLevel, nil
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "FATAL":
		return zerolog.FatalLevel, nil
	case "DISABLED":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("incorrect log level %q", logLevel)
	}
}
