package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GUARDIAN"

// NewEnv returns a viper instance bound to GUARDIAN_* environment variables.
// A key such as "sources.jira.token" reads GUARDIAN_SOURCES_JIRA_TOKEN.
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnv overlays environment settings on cfg. Credentials are looked up
// per source name so secrets never need to live in guardian.yaml.
func ApplyEnv(cfg *types.ProjectConfig, v *viper.Viper) {
	set := func(dst *string, key string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	set(&cfg.RiskWindow, "risk_window")
	set(&cfg.Rules.URL, "rules.url")
	set(&cfg.Rules.Path, "rules.path")

	for i := range cfg.Sources {
		key := "sources." + envKey(SourceName(cfg.Sources[i]))
		set(&cfg.Sources[i].BaseURL, key+".base_url")
		set(&cfg.Sources[i].Username, key+".username")
		set(&cfg.Sources[i].Token, key+".token")
	}

	for i := range cfg.Alerts {
		a := &cfg.Alerts[i]
		switch {
		case a.SMTP != nil:
			set(&a.SMTP.Host, "smtp.host")
			set(&a.SMTP.Username, "smtp.username")
			set(&a.SMTP.Password, "smtp.password")
		case a.Type == types.AlertWebhook:
			set(&a.URL, "webhook.url")
		case a.Type == types.AlertSQS:
			set(&a.QueueURL, "sqs.queue_url")
		}
	}

	if addr := v.GetString("server.addr"); addr != "" {
		if cfg.Server == nil {
			cfg.Server = &types.ServerConfig{}
		}
		cfg.Server.Addr = addr
	}
	if ep := v.GetString("telemetry.endpoint"); ep != "" {
		if cfg.Telemetry == nil {
			cfg.Telemetry = &types.TelemetryConfig{}
		}
		cfg.Telemetry.Endpoint = ep
	}
}
