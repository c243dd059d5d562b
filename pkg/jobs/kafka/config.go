package kafka

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
)

type Config struct {
	Enabled bool

	Brokers      []string
	JobsTopic    string
	ResultsTopic string
	GroupID      string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool

	// OpTimeout bounds a single job.
	OpTimeout  time.Duration
	DedupeSize int
}

// FromConfig maps the service configuration onto worker settings.
func FromConfig(c config.Config) Config {
	return Config{
		Enabled:          c.Worker.Enabled,
		Brokers:          split(c.Worker.Brokers),
		JobsTopic:        c.Worker.JobsTopic,
		ResultsTopic:     c.Worker.ResultsTopic,
		GroupID:          c.Worker.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
		OpTimeout:        c.OpTimeout,
		DedupeSize:       8192,
	}
}

func split(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
