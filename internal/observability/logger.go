package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the process-wide console logger tagged with the app
// name and its node identifier, and installs it as the zerolog global.
func InitLogger(app, nodeID string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	ctx := zerolog.New(output).With().Timestamp().Str("app", app)
	if nodeID != "" {
		ctx = ctx.Str("node", nodeID)
	}
	logger := ctx.Logger()
	log.Logger = logger
	return logger
}
