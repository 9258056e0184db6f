package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New инициализирует логгер. В продакшн (GIN_MODE=release) пишет JSON с уровнем Info, иначе текст с уровнем Debug.
// level, если он задан и распознан logrus, переопределяет уровень для любого окружения.
func New(output io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(output)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	l.SetLevel(logrus.InfoLevel)

	// перезаписываем ряд настроек для окружений отличных от продакшн
	if os.Getenv("GIN_MODE") != "release" {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			l.WithError(err).Warnf("unknown log level %q, keeping %s", level, l.GetLevel())
			return l
		}
		l.SetLevel(parsed)
	}
	return l
}
