// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvChannelID     = "CG_CHANNEL_ID"
	EnvChannelSecret = "CG_CHANNEL_SECRET"

	// Provider API
	EnvProviderBaseURL = "CG_PROVIDER_BASE_URL"

	// Server
	EnvPort            = "CG_PORT"
	EnvLogLevel        = "CG_LOG_LEVEL"
	EnvShutdownTimeout = "CG_SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir           = "CG_DATA_DIR"
	EnvDeliveryRetention = "CG_DELIVERY_RETENTION"

	// Events
	EnvEventTimeout        = "CG_EVENT_TIMEOUT"
	EnvMaxEventsPerWebhook = "CG_MAX_EVENTS_PER_WEBHOOK"

	// Outbound
	EnvSendBaseDelay   = "CG_SEND_BASE_DELAY"
	EnvSendMaxDelay    = "CG_SEND_MAX_DELAY"
	EnvSendMaxAttempts = "CG_SEND_MAX_ATTEMPTS"
	EnvSendTimeout     = "CG_SEND_TIMEOUT"

	// Rate Limits
	EnvPlan           = "CG_PLAN"
	EnvPlanCapacity   = "CG_PLAN_CAPACITY"
	EnvPlanWindow     = "CG_PLAN_WINDOW"
	EnvRateMaxWait    = "CG_RATE_MAX_WAIT"
	EnvUserRateBurst  = "CG_USER_RATE_BURST"
	EnvUserRateRefill = "CG_USER_RATE_REFILL"

	// Credential
	EnvCredentialTTL         = "CG_CREDENTIAL_TTL"
	EnvCredentialMaxAttempts = "CG_CREDENTIAL_MAX_ATTEMPTS"

	// Sentry Feature
	EnvSentryEnabled     = "CG_SENTRY_ENABLED"
	EnvSentryDSN         = "CG_SENTRY_DSN"
	EnvSentryEnvironment = "CG_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CG_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "CG_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CG_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "CG_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "CG_METRICS_USERNAME"
	EnvMetricsPassword    = "CG_METRICS_PASSWORD"
)
