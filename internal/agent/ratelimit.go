package agent

import "github.com/ronitrai27/looma-agent/internal/store"

// RateLimitPolicy decides whether a project may receive another agent
// response right now, given its current config and counters.
type RateLimitPolicy func(cfg store.AgentConfig) bool

// AllowAlways is the active policy: rate limiting is switched off and
// every run proceeds to scoring. The engagement threshold is the only
// throttle in effect.
//
// The tiered policy below is kept for when limiting is switched back on:
//
//	func TieredLimit(now func() time.Time) RateLimitPolicy {
//		return func(cfg store.AgentConfig) bool {
//			// 5-minute cooldown since the last response.
//			if cfg.LastResponseAtMs > 0 &&
//				now().UnixMilli()-cfg.LastResponseAtMs < 5*60*1000 {
//				return false
//			}
//			// Daily cap by response frequency tier.
//			caps := map[string]int{
//				store.FrequencyConservative: 5,
//				store.FrequencyModerate:     15,
//				store.FrequencyActive:       30,
//			}
//			return cfg.ResponsesToday < caps[cfg.Frequency]
//		}
//	}
func AllowAlways(store.AgentConfig) bool { return true }
