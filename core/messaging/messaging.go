package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Config holds configuration for the re-invocation channel.
type Config struct {
	// URL is the NATS server address. Messaging is disabled when empty.
	URL string `mapstructure:"url" default:""`
	// Subject receives re-invocation messages.
	Subject string `mapstructure:"subject" default:"resource-exporter.reinvoke"`
	// Queue is the queue group shared by workers.
	Queue string `mapstructure:"queue" default:"resource-exporter"`
	// Name identifies the connection on the server.
	Name string `mapstructure:"name" default:"resource-exporter"`
	// MaxReconnects bounds reconnect attempts.
	MaxReconnects int `mapstructure:"max_reconnects" default:"10"`
	// ReconnectWaitSeconds is the delay between reconnect attempts.
	ReconnectWaitSeconds int `mapstructure:"reconnect_wait_seconds" default:"2"`
}

// Enabled reports whether a server is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// ErrDisabled is returned when messaging is used without a configured server.
var ErrDisabled = errors.New("messaging is not configured")

// Publisher sends raw messages. *nats.Conn implements it.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Subscriber registers queue subscriptions. *nats.Conn implements it.
type Subscriber interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Connect opens a NATS connection with reconnect logging.
func Connect(cfg Config, logger *zap.Logger) (*nats.Conn, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	wait := time.Duration(cfg.ReconnectWaitSeconds) * time.Second
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Reinvoker publishes the remaining work of an invocation so another worker picks it up.
type Reinvoker struct {
	pub     Publisher
	subject string
	logger  *zap.Logger
}

// NewReinvoker creates a Reinvoker publishing to subject.
func NewReinvoker(pub Publisher, subject string, logger *zap.Logger) *Reinvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reinvoker{pub: pub, subject: subject, logger: logger}
}

// Reinvoke encodes payload as JSON and publishes it.
func (r *Reinvoker) Reinvoke(_ context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode invocation: %w", err)
	}
	if err := r.pub.Publish(r.subject, data); err != nil {
		return fmt.Errorf("publish invocation: %w", err)
	}
	r.logger.Info("Published re-invocation", zap.String("subject", r.subject), zap.Int("bytes", len(data)))
	return nil
}

// Handler processes one invocation payload.
type Handler func(ctx context.Context, data []byte) error

// MessageHandler adapts h to a NATS callback. Failures are logged; when the
// sender asked for a reply it receives "ok" or the error text.
func MessageHandler(ctx context.Context, h Handler, logger *zap.Logger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		err := h(ctx, msg.Data)
		if err != nil {
			logger.Error("Invocation failed", zap.String("subject", msg.Subject), zap.Error(err))
		}

		if msg.Reply == "" {
			return
		}
		reply := []byte("ok")
		if err != nil {
			reply = []byte(err.Error())
		}
		if rerr := msg.Respond(reply); rerr != nil {
			logger.Warn("Failed to reply", zap.Error(rerr))
		}
	}
}

// Consume subscribes h to cfg.Subject in cfg.Queue and blocks until ctx is done.
func Consume(ctx context.Context, sub Subscriber, cfg Config, h Handler, logger *zap.Logger) error {
	s, err := sub.QueueSubscribe(cfg.Subject, cfg.Queue, MessageHandler(ctx, h, logger))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}
	logger.Info("Waiting for invocations", zap.String("subject", cfg.Subject), zap.String("queue", cfg.Queue))

	<-ctx.Done()
	if s != nil {
		if err := s.Drain(); err != nil {
			logger.Warn("Failed to drain subscription", zap.Error(err))
		}
	}
	return nil
}
