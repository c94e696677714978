package types

// RulesConfig defines where the compliance rule catalog is loaded from.
type RulesConfig struct {
	Path               string `yaml:"path,omitempty" json:"path,omitempty"`         // file or directory of YAML/JSON
	URL                string `yaml:"url,omitempty" json:"url,omitempty"`           // remote YAML/JSON document
	TextPath           string `yaml:"textPath,omitempty" json:"textPath,omitempty"` // plain-text step overlay
	Timeout            string `yaml:"timeout,omitempty" json:"timeout,omitempty"`   // e.g. "10s"
	FallbackToDefaults bool   `yaml:"fallbackToDefaults,omitempty" json:"fallbackToDefaults,omitempty"`
}

// Calendar defines a named set of blackout windows.
type Calendar struct {
	Name            string           `yaml:"name" json:"name"`
	Timezone        string           `yaml:"timezone,omitempty" json:"timezone,omitempty"` // e.g. "America/New_York"
	Windows         []BlackoutWindow `yaml:"windows,omitempty" json:"windows,omitempty"`
	LastWeekOfMonth bool             `yaml:"lastWeekOfMonth,omitempty" json:"lastWeekOfMonth,omitempty"`
	Dates           []string         `yaml:"dates,omitempty" json:"dates,omitempty"` // "2025-12-25"
}

// BlackoutWindow is a weekly recurring window, e.g. from "friday 18:00" to "monday 06:00".
type BlackoutWindow struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// SourceConfig defines a ticket feed.
type SourceConfig struct {
	Type         SourceType   `yaml:"type" json:"type"`
	Name         string       `yaml:"name,omitempty" json:"name,omitempty"`
	Incidents    string       `yaml:"incidents,omitempty" json:"incidents,omitempty"` // CSV path
	Changes      string       `yaml:"changes,omitempty" json:"changes,omitempty"`     // CSV path
	BaseURL      string       `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	Project      string       `yaml:"project,omitempty" json:"project,omitempty"`
	LookbackDays int          `yaml:"lookbackDays,omitempty" json:"lookbackDays,omitempty"`
	MaxResults   int          `yaml:"maxResults,omitempty" json:"maxResults,omitempty"`
	Username     string       `yaml:"username,omitempty" json:"username,omitempty"`
	Token        string       `yaml:"token,omitempty" json:"token,omitempty"`
	Timeout      string       `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RateLimit    float64      `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"` // requests per second
	Retry        *RetryPolicy `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// RetryPolicy configures retries of a failed source fetch.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"maxAttempts" json:"maxAttempts"`
	BackoffSeconds    int     `yaml:"backoffSeconds" json:"backoffSeconds"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier,omitempty" json:"backoffMultiplier,omitempty"`
}

// SMTPConfig holds mail relay settings for the email sink.
type SMTPConfig struct {
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port,omitempty" json:"port,omitempty"`
	Username string   `yaml:"username,omitempty" json:"username,omitempty"`
	Password string   `yaml:"password,omitempty" json:"password,omitempty"`
	From     string   `yaml:"from" json:"from"`
	CC       []string `yaml:"cc,omitempty" json:"cc,omitempty"`
	Fallback string   `yaml:"fallback,omitempty" json:"fallback,omitempty"` // recipient for owners without an email
}

// AlertConfig defines a notification sink configuration.
type AlertConfig struct {
	Type         AlertType   `yaml:"type" json:"type"`
	URL          string      `yaml:"url,omitempty" json:"url,omitempty"`
	Path         string      `yaml:"path,omitempty" json:"path,omitempty"`
	QueueURL     string      `yaml:"queueUrl,omitempty" json:"queueUrl,omitempty"`
	EventBusName string      `yaml:"eventBusName,omitempty" json:"eventBusName,omitempty"`
	SMTP         *SMTPConfig `yaml:"smtp,omitempty" json:"smtp,omitempty"`
}

// WatcherConfig configures the periodic analysis scheduler.
type WatcherConfig struct {
	Interval   string `yaml:"interval" json:"interval"` // e.g. "1h"
	RunOnStart bool   `yaml:"runOnStart,omitempty" json:"runOnStart,omitempty"`
	Notify     bool   `yaml:"notify,omitempty" json:"notify,omitempty"`
}

// ServerConfig holds HTTP status server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"` // OTLP gRPC host:port
	Insecure    bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// SecretsConfig points at an AWS Secrets Manager secret holding source credentials.
type SecretsConfig struct {
	SecretID string `yaml:"secretId" json:"secretId"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
}

// ProjectConfig represents the top-level guardian.yaml configuration.
type ProjectConfig struct {
	Rules        RulesConfig      `yaml:"rules"`
	CalendarDirs []string         `yaml:"calendarDirs,omitempty"`
	Blackout     string           `yaml:"blackoutCalendar,omitempty"` // reference to named Calendar
	RiskWindow   string           `yaml:"riskWindow,omitempty"`
	Sources      []SourceConfig   `yaml:"sources"`
	Alerts       []AlertConfig    `yaml:"alerts,omitempty"`
	Watcher      *WatcherConfig   `yaml:"watcher,omitempty"`
	Server       *ServerConfig    `yaml:"server,omitempty"`
	Telemetry    *TelemetryConfig `yaml:"telemetry,omitempty"`
	Secrets      *SecretsConfig   `yaml:"secrets,omitempty"`
}
