package ratelimit

import "github.com/Proton-105/worktime-bot/pkg/config"

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config    config.RateLimitConfig
	whitelist map[int64]struct{}
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	whitelist := make(map[int64]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}
	return &Rules{config: cfg, whitelist: whitelist}
}

// Enabled reports whether limits apply at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled && r.config.Requests > 0 && r.config.Window > 0
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	_, ok := r.whitelist[userID]
	return ok
}

// PerUser returns the rule applied to every sender.
func (r *Rules) PerUser() Rule {
	return Rule{Limit: r.config.Requests, Window: r.config.Window}
}
