// Package testlog applies the quiet logging profile for tests.
package testlog

import (
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/identd/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	gin.SetMode(gin.TestMode)
}
