package ros

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevelEnv overrides the default node log level.
const LogLevelEnv = "ROS_LOG_LEVEL"

// NewLogger returns a new logger at the given level name; an empty or
// unknown name falls back to ROS_LOG_LEVEL and then to info.
func NewLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(parseLogLevel(level))
	return l
}

func parseLogLevel(level string) logrus.Level {
	for _, candidate := range []string{level, os.Getenv(LogLevelEnv)} {
		if candidate == "" {
			continue
		}
		if lvl, err := logrus.ParseLevel(strings.ToLower(candidate)); err == nil {
			return lvl
		}
	}
	return logrus.InfoLevel
}

func nodeLogger(base *logrus.Logger, qualifiedName string) *logrus.Entry {
	return base.WithField("node", qualifiedName)
}
