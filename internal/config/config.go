package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	MetricsAddr    string
	LogLevel       string
	ServiceName    string

	TemporalAddress       string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	SenderEmail          string
	AdminEmailRecipients []string
	Organisation         string
	WebsiteHostname      string

	// SummaryEpoch is the start of the very first summary window. When empty
	// the first window reaches back SummaryLookback from now.
	SummaryEpoch    string
	SummaryLookback time.Duration
	// SummarySettle is held back from the end of every summary window so rows
	// committed by transactions still in flight land in the next one.
	SummarySettle    time.Duration
	SummaryCron      string
	AbolishCron      string
	AlertsCron       string
	ScheduleTimezone string

	// Owner notifications
	NotifiableRoles       []string
	RolesFilter           []string
	SubscriptionWhitelist []string
	IgnoreWhitelist       bool

	StatusFuncPublicKey     string
	UsageFuncPublicKey      string
	ControllerFuncPublicKey string

	// Status agent
	APIURL            string
	AgentPrivateKey   string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	AgentPollInterval time.Duration
}

func Load() (*Config, error) {
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("parse SMTP_PORT: %w", err)
	}

	lookback, err := time.ParseDuration(getEnv("SUMMARY_LOOKBACK", "24h"))
	if err != nil {
		return nil, fmt.Errorf("parse SUMMARY_LOOKBACK: %w", err)
	}

	settle, err := time.ParseDuration(getEnv("SUMMARY_SETTLE", "2m"))
	if err != nil {
		return nil, fmt.Errorf("parse SUMMARY_SETTLE: %w", err)
	}

	ignoreWhitelist, err := strconv.ParseBool(getEnv("IGNORE_WHITELIST", "true"))
	if err != nil {
		return nil, fmt.Errorf("parse IGNORE_WHITELIST: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("AGENT_POLL_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("parse AGENT_POLL_INTERVAL: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8000"),
		MetricsAddr:    getEnv("METRICS_ADDR", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceName:    getEnv("SERVICE_NAME", ""),

		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),

		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             smtpPort,
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", ""),
		AdminEmailRecipients: splitList(getEnv("ADMIN_EMAIL_RECIPIENTS", "")),
		Organisation:         getEnv("ORGANISATION", "My organisation"),
		WebsiteHostname:      getEnv("WEBSITE_HOSTNAME", ""),

		SummaryEpoch:     getEnv("SUMMARY_EPOCH", ""),
		SummaryLookback:  lookback,
		SummarySettle:    settle,
		SummaryCron:      getEnv("SUMMARY_CRON", "0 16 * * *"),
		AbolishCron:      getEnv("ABOLISH_CRON", "0 1 * * *"),
		AlertsCron:       getEnv("ALERTS_CRON", "0 9 * * *"),
		ScheduleTimezone: getEnv("SCHEDULE_TIMEZONE", "Europe/London"),

		NotifiableRoles:       splitList(getEnv("NOTIFIABLE_ROLES", "Contributor")),
		RolesFilter:           splitList(getEnv("ROLES_FILTER", "Contributor")),
		SubscriptionWhitelist: splitList(getEnv("SUBSCRIPTION_WHITELIST", "")),
		IgnoreWhitelist:       ignoreWhitelist,

		StatusFuncPublicKey:     getEnv("STATUS_FUNC_PUBLIC_KEY", ""),
		UsageFuncPublicKey:      getEnv("USAGE_FUNC_PUBLIC_KEY", ""),
		ControllerFuncPublicKey: getEnv("CONTROLLER_FUNC_PUBLIC_KEY", ""),

		APIURL:            getEnv("API_URL", "http://localhost:8000"),
		AgentPrivateKey:   getEnv("AGENT_PRIVATE_KEY", ""),
		AzureTenantID:     getEnv("AZURE_TENANT_ID", ""),
		AzureClientID:     getEnv("AZURE_CLIENT_ID", ""),
		AzureClientSecret: getEnv("AZURE_CLIENT_SECRET", ""),
		AgentPollInterval: pollInterval,
	}

	return cfg, nil
}

// Validate checks that the variables required by the given component are set.
func (c *Config) Validate(component string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch component {
	case "budget-api":
		require("DATABASE_URL", c.DatabaseURL)
	case "worker":
		require("DATABASE_URL", c.DatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
	case "status-agent":
		require("API_URL", c.APIURL)
		require("AGENT_PRIVATE_KEY", c.AgentPrivateKey)
		require("AZURE_TENANT_ID", c.AzureTenantID)
		require("AZURE_CLIENT_ID", c.AzureClientID)
		require("AZURE_CLIENT_SECRET", c.AzureClientSecret)
	default:
		return fmt.Errorf("unknown component %q", component)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", component, strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}

	if c.SummaryEpoch != "" {
		if _, err := time.Parse(time.RFC3339, c.SummaryEpoch); err != nil {
			return fmt.Errorf("SUMMARY_EPOCH must be RFC3339: %w", err)
		}
	}
	if c.SummarySettle < 0 || (c.SummaryLookback > 0 && c.SummarySettle >= c.SummaryLookback) {
		return fmt.Errorf("SUMMARY_SETTLE must be between 0 and SUMMARY_LOOKBACK")
	}
	if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
		return fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", c.ScheduleTimezone, err)
	}
	return nil
}

// Epoch returns the parsed SUMMARY_EPOCH, or nil when unset.
func (c *Config) Epoch() *time.Time {
	if c.SummaryEpoch == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, c.SummaryEpoch)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// SMTPConfigured reports whether enough SMTP settings exist to send mail.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
