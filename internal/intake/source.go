// Package intake maps ticket feeds (CSV exports, Jira, ServiceNow) onto
// incident and change records. Rows that fail validation are skipped and
// reported, never fatal to the batch.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dwsmith1983/guardian/internal/fetch"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// DefaultLookbackDays bounds remote queries when a source sets no window.
const DefaultLookbackDays = 30

// Batch is the output of one fetch from a source.
type Batch struct {
	Incidents []types.IncidentRecord
	Changes   []types.ChangeRecord
	Malformed []types.MalformedRecord
}

// Merge appends other onto b.
func (b *Batch) Merge(other Batch) {
	b.Incidents = append(b.Incidents, other.Incidents...)
	b.Changes = append(b.Changes, other.Changes...)
	b.Malformed = append(b.Malformed, other.Malformed...)
}

// skip records a malformed row. Errors other than *MalformedRecordError are
// returned for the caller to abort on.
func (b *Batch) skip(logger *slog.Logger, err error) error {
	var mre *MalformedRecordError
	if !errors.As(err, &mre) {
		return err
	}
	logger.Warn("skipping malformed record", "source", mre.Source, "ticket", mre.TicketID, "line", mre.Line, "reason", mre.Error())
	b.Malformed = append(b.Malformed, mre.Record())
	return nil
}

// Source produces a batch of records.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Batch, error)
}

// Option configures source construction.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	fetch  []fetch.Option
}

// WithLogger sets the logger used for skipped-record warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the clock used to compute lookback windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFetchOptions passes extra options to the HTTP client of remote sources.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(o *options) { o.fetch = append(o.fetch, opts...) }
}

// New builds the source described by cfg.
func New(cfg types.SourceConfig, opts ...Option) (Source, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}

	switch cfg.Type {
	case types.SourceCSV:
		if cfg.Incidents == "" && cfg.Changes == "" {
			return nil, fmt.Errorf("csv source %q: incidents or changes path is required", cfg.Name)
		}
		return &CSVSource{name: nameOr(cfg.Name, "csv"), incidents: cfg.Incidents, changes: cfg.Changes, logger: o.logger}, nil
	case types.SourceJira:
		client, err := remoteClient(cfg, o)
		if err != nil {
			return nil, err
		}
		if cfg.Project == "" {
			return nil, fmt.Errorf("jira source %q: project is required", cfg.Name)
		}
		return &JiraSource{
			name:       nameOr(cfg.Name, "jira"),
			baseURL:    cfg.BaseURL,
			project:    cfg.Project,
			lookback:   lookback(cfg),
			maxResults: maxResults(cfg, 100),
			client:     client,
			logger:     o.logger,
			now:        o.now,
		}, nil
	case types.SourceServiceNow:
		client, err := remoteClient(cfg, o)
		if err != nil {
			return nil, err
		}
		return &ServiceNowSource{
			name:     nameOr(cfg.Name, "servicenow"),
			baseURL:  cfg.BaseURL,
			lookback: lookback(cfg),
			limit:    maxResults(cfg, 1000),
			client:   client,
			logger:   o.logger,
			now:      o.now,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported source type: %q", cfg.Type)
	}
}

func remoteClient(cfg types.SourceConfig, o options) (*fetch.Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s source %q: baseUrl is required", cfg.Type, cfg.Name)
	}
	fopts := []fetch.Option{fetch.WithLogger(o.logger)}
	if cfg.Username != "" || cfg.Token != "" {
		fopts = append(fopts, fetch.WithBasicAuth(cfg.Username, cfg.Token))
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%s source %q: invalid timeout %q: %w", cfg.Type, cfg.Name, cfg.Timeout, err)
		}
		fopts = append(fopts, fetch.WithTimeout(d))
	}
	if cfg.RateLimit > 0 {
		fopts = append(fopts, fetch.WithRateLimit(cfg.RateLimit, 1))
	}
	fopts = append(fopts, o.fetch...)
	return fetch.New(nameOr(cfg.Name, string(cfg.Type)), fopts...), nil
}

func nameOr(name, def string) string {
	if name != "" {
		return name
	}
	return def
}

func lookback(cfg types.SourceConfig) time.Duration {
	days := cfg.LookbackDays
	if days <= 0 {
		days = DefaultLookbackDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func maxResults(cfg types.SourceConfig, def int) int {
	if cfg.MaxResults > 0 {
		return cfg.MaxResults
	}
	return def
}
