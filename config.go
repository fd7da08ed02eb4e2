package stage

import (
	"log/slog"
	"time"

	"github.com/TheBitDrifter/table"
)

// Config holds global configuration for the scene system
var Config config = config{
	maxDelta: 100 * time.Millisecond,
}

type config struct {
	tableEvents table.TableEvents
	logger      *slog.Logger
	maxDelta    time.Duration
}

// SetTableEvents configures the table event callbacks used by component tables
func (c *config) SetTableEvents(te table.TableEvents) {
	c.tableEvents = te
}

// SetLogger replaces the logger used by scenes, pipelines and loops.
// A nil logger restores slog.Default.
func (c *config) SetLogger(l *slog.Logger) {
	c.logger = l
}

func (c *config) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// SetMaxDelta sets the default frame delta clamp applied by loops that do not
// configure their own.
func (c *config) SetMaxDelta(d time.Duration) {
	c.maxDelta = d
}

func (c *config) MaxDelta() time.Duration {
	return c.maxDelta
}
