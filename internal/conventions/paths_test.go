package conventions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/stagetrack/internal/conventions"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/home/u/.stagetrack/stagetrack.db", conventions.DBPath("/home/u/.stagetrack"))
	assert.Equal(t, "/tmp/data/replay.prom", conventions.MetricsPath("/tmp/data"))
}
