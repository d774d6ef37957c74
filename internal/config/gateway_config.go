package config

import (
	"fmt"
	"time"
)

// Plan identifies the rate-limit tier for the channel.
type Plan string

// Rate-limit tiers. Capacities are configuration, not code branches.
const (
	PlanStandard   Plan = "standard"
	PlanBusiness   Plan = "business"
	PlanEnterprise Plan = "enterprise"
)

// PlanLimits holds the rolling-window quota for one plan.
type PlanLimits struct {
	Capacity int           // outbound calls allowed per window
	Window   time.Duration // rolling window duration
}

// defaultPlanLimits is the built-in plan table. The active plan's limits
// can be overridden via CG_PLAN_CAPACITY / CG_PLAN_WINDOW.
var defaultPlanLimits = map[Plan]PlanLimits{
	PlanStandard:   {Capacity: 500, Window: time.Minute},
	PlanBusiness:   {Capacity: 1000, Window: time.Minute},
	PlanEnterprise: {Capacity: 2000, Window: time.Minute},
}

// GatewayConfig holds gateway-specific configuration
type GatewayConfig struct {
	// Timeouts
	EventTimeout time.Duration // per-event processing deadline (webhook response is never blocked on it)
	SendTimeout  time.Duration // per-request timeout for a single provider API call

	// Outbound retry (exponential backoff with jitter)
	SendBaseDelay   time.Duration // first retry delay (default: 500ms)
	SendMaxDelay    time.Duration // backoff cap (default: 30s)
	SendMaxAttempts int           // total attempts including the first (default: 5)

	// Rate Limits
	Plan        Plan
	PlanLimits  PlanLimits    // resolved limits for the active plan
	RateMaxWait time.Duration // bounded wait for a rate-limit permit (default: 2s)

	// Per-user throttle (token bucket)
	UserRateLimitBurst        float64 // maximum burst tokens per user (default: 15)
	UserRateLimitRefillPerSec float64 // tokens refilled per second (default: 0.1 = 1 per 10s)

	// Credential
	CredentialTTL         time.Duration // requested token lifetime (default: 30 days)
	CredentialMaxAttempts int           // refresh attempts before CredentialRefreshFailed (default: 3)

	// Provider API Constraints
	MaxEventsPerWebhook int // maximum events accepted per webhook batch (default: 100)
	MaxMessagesPerReply int // maximum messages per reply call (provider limit: 5)
	MinReplyTokenLength int // minimum reply token length (default: 10)
}

func loadGatewayConfig() GatewayConfig {
	plan := Plan(getEnv(EnvPlan, string(PlanStandard)))

	limits, ok := defaultPlanLimits[plan]
	if !ok {
		limits = defaultPlanLimits[PlanStandard]
	}
	limits.Capacity = getEnvInt(EnvPlanCapacity, limits.Capacity)
	limits.Window = getEnvDuration(EnvPlanWindow, limits.Window)

	return GatewayConfig{
		EventTimeout: getEnvDuration(EnvEventTimeout, 10*time.Second),
		SendTimeout:  getEnvDuration(EnvSendTimeout, 10*time.Second),

		SendBaseDelay:   getEnvDuration(EnvSendBaseDelay, 500*time.Millisecond),
		SendMaxDelay:    getEnvDuration(EnvSendMaxDelay, 30*time.Second),
		SendMaxAttempts: getEnvInt(EnvSendMaxAttempts, 5),

		Plan:        plan,
		PlanLimits:  limits,
		RateMaxWait: getEnvDuration(EnvRateMaxWait, 2*time.Second),

		UserRateLimitBurst:        getEnvFloat(EnvUserRateBurst, 15),
		UserRateLimitRefillPerSec: getEnvFloat(EnvUserRateRefill, 0.1),

		CredentialTTL:         getEnvDuration(EnvCredentialTTL, 30*24*time.Hour),
		CredentialMaxAttempts: getEnvInt(EnvCredentialMaxAttempts, 3),

		MaxEventsPerWebhook: getEnvInt(EnvMaxEventsPerWebhook, 100),
		MaxMessagesPerReply: 5,
		MinReplyTokenLength: 10,
	}
}

func (g *GatewayConfig) validate() error {
	switch g.Plan {
	case PlanStandard, PlanBusiness, PlanEnterprise:
	default:
		return fmt.Errorf("unknown plan %q", g.Plan)
	}
	if g.PlanLimits.Capacity <= 0 {
		return fmt.Errorf("plan capacity must be positive, got %d", g.PlanLimits.Capacity)
	}
	if g.PlanLimits.Window <= 0 {
		return fmt.Errorf("plan window must be positive, got %v", g.PlanLimits.Window)
	}
	if g.SendMaxAttempts < 1 {
		return fmt.Errorf("send max attempts must be at least 1, got %d", g.SendMaxAttempts)
	}
	if g.SendBaseDelay <= 0 || g.SendMaxDelay < g.SendBaseDelay {
		return fmt.Errorf("invalid send backoff range [%v, %v]", g.SendBaseDelay, g.SendMaxDelay)
	}
	if g.CredentialMaxAttempts < 1 {
		return fmt.Errorf("credential max attempts must be at least 1, got %d", g.CredentialMaxAttempts)
	}
	return nil
}
