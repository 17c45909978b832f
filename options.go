package ancestor

import (
	"strings"

	"github.com/goliatone/go-ancestor/pkg/activity"
)

// Option configures a node at construction.
type Option func(*nodeConfig)

// Recorder receives engine measurements. See the metrics package for a
// Prometheus implementation.
type Recorder interface {
	ObserveResolution(property string, hops int)
	ChangeForwarded(property string)
	ChangeSuppressed(property string)
	ConfigurationError(typeName string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveResolution(string, int) {}
func (noopRecorder) ChangeForwarded(string)        {}
func (noopRecorder) ChangeSuppressed(string)       {}
func (noopRecorder) ConfigurationError(string)     {}

type nodeConfig struct {
	logger   Logger
	recorder Recorder
	hooks    activity.Hooks
	channel  string
	actorID  string
	emitter  *activity.Emitter
}

func defaultConfig() nodeConfig {
	return nodeConfig{
		logger:   noopLogger{},
		recorder: noopRecorder{},
	}
}

// applyOptions layers opts over base, which descendants take from their parent.
func applyOptions(base nodeConfig, opts []Option) nodeConfig {
	cfg := base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.recorder == nil {
		cfg.recorder = noopRecorder{}
	}
	cfg.emitter = activity.NewEmitter(cfg.hooks, activity.Config{
		Enabled: len(cfg.hooks) > 0,
		Channel: cfg.channel,
	})
	return cfg
}

// WithLogger attaches a logger. Nil restores the no-op logger.
func WithLogger(logger Logger) Option {
	return func(cfg *nodeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithRecorder attaches a measurement recorder.
func WithRecorder(recorder Recorder) Option {
	return func(cfg *nodeConfig) {
		cfg.recorder = recorder
	}
}

// WithActivityHooks fans every change emitted by the node out to hooks. Nil
// hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return func(cfg *nodeConfig) {
		if len(normalized) == 0 {
			cfg.hooks = nil
			return
		}
		cfg.hooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on activity events.
func WithActivityChannel(channel string) Option {
	return func(cfg *nodeConfig) {
		cfg.channel = strings.TrimSpace(channel)
	}
}

// WithActor records actorID on activity events emitted by the node.
func WithActor(actorID string) Option {
	return func(cfg *nodeConfig) {
		cfg.actorID = strings.TrimSpace(actorID)
	}
}
