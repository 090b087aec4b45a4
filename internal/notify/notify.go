// Package notify publishes a summary of every finished build to NATS so
// downstream consumers (deploy hooks, search indexers) can react.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

// DefaultSubject is used when none is configured.
const DefaultSubject = "docsite.build.completed"

// BuildNotice is the message body published after a run.
type BuildNotice struct {
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	Trigger    string    `json:"trigger,omitempty"`
	Commit     string    `json:"commit,omitempty"`
	Pages      int       `json:"pages"`
	Failures   int       `json:"failures"`
	Warnings   int       `json:"warnings"`
	DurationMS int64     `json:"duration_ms"`
	Changed    []string  `json:"changed,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Notifier delivers build notices.
type Notifier interface {
	Notify(ctx context.Context, notice BuildNotice) error
	Close()
}

// Noop discards every notice.
type Noop struct{}

func (Noop) Notify(context.Context, BuildNotice) error { return nil }
func (Noop) Close()                                    {}

// Publisher publishes notices on a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server at url, retrying transient failures with
// policy. An empty url yields a Noop notifier.
func Connect(ctx context.Context, url, subject string, policy retry.Policy, logger *slog.Logger) (Notifier, error) {
	if url == "" {
		return Noop{}, nil
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}

	var conn *nats.Conn
	err := policy.Do(ctx, func() error {
		c, err := nats.Connect(url,
			nats.Name("docsite"),
			nats.Timeout(5*time.Second),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, nil, func(attempt int, delay time.Duration, err error) {
		logger.Warn("NATS connect failed, retrying",
			logfields.URL(url),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			logfields.Error(err))
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}

	logger.Info("NATS notifier connected", logfields.URL(url), slog.String("subject", subject))
	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Notify publishes notice and flushes so the message has left the client
// before the command exits.
func (p *Publisher) Notify(ctx context.Context, notice BuildNotice) error {
	data, err := Encode(notice)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish build notice").
			WithContext("subject", p.subject).
			WithContext("run_id", notice.RunID).
			Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to flush build notice").
			WithContext("subject", p.subject).
			Build()
	}
	p.logger.Debug("Published build notice", logfields.RunID(notice.RunID), slog.String("subject", p.subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", logfields.Error(err))
		p.conn.Close()
	}
}

// Encode marshals a notice to its wire form.
func Encode(notice BuildNotice) ([]byte, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to marshal build notice").Build()
	}
	return data, nil
}
