package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// SecretsAPI is the subset of the Secrets Manager client used by ApplySecrets.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, input *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is the JSON layout of the secret string.
//
//	{"sources": {"jira": {"username": "...", "token": "..."}},
//	 "smtp": {"username": "...", "password": "..."}}
type Credentials struct {
	Sources map[string]SourceCredentials `json:"sources"`
	SMTP    *SMTPCredentials             `json:"smtp,omitempty"`
}

// SourceCredentials authenticate one ticket source.
type SourceCredentials struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// SMTPCredentials authenticate the mail relay.
type SMTPCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewSecretsClient creates a Secrets Manager client for region, or the
// default region chain when empty.
func NewSecretsClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// ApplySecrets fills credentials left empty by the file and environment from
// the configured secret. It is a no-op without a secrets section.
func ApplySecrets(ctx context.Context, cfg *types.ProjectConfig, client SecretsAPI) error {
	if cfg.Secrets == nil {
		return nil
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.Secrets.SecretID),
	})
	if err != nil {
		return fmt.Errorf("reading secret %s: %w", cfg.Secrets.SecretID, err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &creds); err != nil {
		return fmt.Errorf("decoding secret %s: %w", cfg.Secrets.SecretID, err)
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	for i := range cfg.Sources {
		c, ok := creds.Sources[SourceName(cfg.Sources[i])]
		if !ok {
			continue
		}
		fill(&cfg.Sources[i].Username, c.Username)
		fill(&cfg.Sources[i].Token, c.Token)
	}
	if creds.SMTP != nil {
		for i := range cfg.Alerts {
			if s := cfg.Alerts[i].SMTP; s != nil {
				fill(&s.Username, creds.SMTP.Username)
				fill(&s.Password, creds.SMTP.Password)
			}
		}
	}
	return nil
}
