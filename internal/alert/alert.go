// Package alert fans out per-owner compliance alerts to notification sinks.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/dwsmith1983/guardian/internal/fetch"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// Sink is an alert destination.
type Sink interface {
	Send(ctx context.Context, alert types.Alert) error
	Name() string
}

// Dispatcher routes alerts to configured sinks.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger

	// injected into sinks built by NewDispatcher
	out         io.Writer
	sqsClient   SQSAPI
	eventClient EventBridgeAPI
	sendMail    MailFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used to report sink failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOutput sets the writer of the console sink.
func WithOutput(w io.Writer) Option {
	return func(d *Dispatcher) { d.out = w }
}

// WithSQSClient sets the client used by sqs sinks.
func WithSQSClient(c SQSAPI) Option {
	return func(d *Dispatcher) { d.sqsClient = c }
}

// WithEventBridgeClient sets the client used by eventbridge sinks.
func WithEventBridgeClient(c EventBridgeAPI) Option {
	return func(d *Dispatcher) { d.eventClient = c }
}

// WithMailFunc replaces smtp.SendMail for email sinks.
func WithMailFunc(fn MailFunc) Option {
	return func(d *Dispatcher) { d.sendMail = fn }
}

// NewDispatcher creates a dispatcher from alert configs.
func NewDispatcher(configs []types.AlertConfig, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{logger: slog.Default(), out: os.Stdout}
	for _, o := range opts {
		o(d)
	}
	if err := d.build(configs); err != nil {
		return nil, err
	}
	return d, nil
}

// build appends a sink per config. On failure every sink already held is
// closed.
func (d *Dispatcher) build(configs []types.AlertConfig) error {
	for _, cfg := range configs {
		sink, err := d.newSink(cfg)
		if err != nil {
			if cerr := d.Close(); cerr != nil {
				d.logger.Warn("closing alert sinks", "error", cerr)
			}
			return fmt.Errorf("creating %s sink: %w", cfg.Type, err)
		}
		d.sinks = append(d.sinks, sink)
	}
	return nil
}

// AddSink appends a sink after construction.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Len reports the number of configured sinks.
func (d *Dispatcher) Len() int { return len(d.sinks) }

// Close releases sinks that hold resources, such as open alert files.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, sink := range d.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Dispatch sends an alert to every sink. A failing sink is logged and does
// not stop delivery to the rest; the joined failures are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, alert types.Alert) error {
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, alert); err != nil {
			d.logger.Warn("alert delivery failed",
				"sink", sink.Name(),
				"owner", alert.OwnerKey,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) newSink(cfg types.AlertConfig) (Sink, error) {
	switch cfg.Type {
	case types.AlertConsole:
		return NewConsoleSink(d.out), nil
	case types.AlertWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		return NewWebhookSink(cfg.URL, fetch.WithLogger(d.logger)), nil
	case types.AlertFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path)
	case types.AlertEmail:
		if cfg.SMTP == nil {
			return nil, fmt.Errorf("smtp settings required")
		}
		var opts []EmailSinkOption
		if d.sendMail != nil {
			opts = append(opts, WithSendMail(d.sendMail))
		}
		return NewEmailSink(*cfg.SMTP, opts...)
	case types.AlertSQS:
		var opts []SQSSinkOption
		if d.sqsClient != nil {
			opts = append(opts, WithSQS(d.sqsClient))
		}
		return NewSQSSink(cfg.QueueURL, opts...)
	case types.AlertEventBridge:
		var opts []EventBridgeSinkOption
		if d.eventClient != nil {
			opts = append(opts, WithEventBridge(d.eventClient))
		}
		return NewEventBridgeSink(cfg.EventBusName, opts...)
	default:
		return nil, fmt.Errorf("unknown alert type %q", cfg.Type)
	}
}

// maxSubject bounds the headline in bytes.
const maxSubject = 100

// subject is the one-line headline carried as the queue message attribute.
func subject(alert types.Alert) string {
	name := alert.OwnerName
	if name == "" {
		name = alert.OwnerKey
	}
	s := fmt.Sprintf("[%s] ITSM compliance: %s", alert.Level, name)
	if len(s) <= maxSubject {
		return s
	}
	end := 0
	for end < len(s) {
		_, size := utf8.DecodeRuneInString(s[end:])
		if end+size > maxSubject {
			break
		}
		end += size
	}
	return s[:end]
}
