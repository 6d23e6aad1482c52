// Package router implements the model-tier router: a pure function from
// token count and query complexity to a recommended downstream model
// tier, provider, and estimated cost.
package router

import "sync"

// Tier is an abstract downstream model tier label.
type Tier string

const (
	TierLocalFree    Tier = "local-free"
	TierCloudFree    Tier = "cloud-free"
	TierCheapCloud   Tier = "cheap-cloud"
	TierBalancedCloud Tier = "balanced-cloud"
	TierPremiumCloud Tier = "premium-cloud"
)

// Decision is the router's output.
type Decision struct {
	Model          Tier
	Provider       string
	Reason         string
	EstimatedCost  float64
}

// Thresholds is the overridable routing policy.
type Thresholds struct {
	LocalFreeTokens     int
	LocalFreeComplexity float64
	CloudFreeTokens     int
	CloudFreeComplexity float64
	CheapCloudTokens    int
	CheapCloudComplexity float64
	BalancedCloudTokens int
}

// DefaultThresholds returns the spec's default policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LocalFreeTokens:      8000,
		LocalFreeComplexity:  0.6,
		CloudFreeTokens:      50000,
		CloudFreeComplexity:  0.7,
		CheapCloudTokens:     50000,
		CheapCloudComplexity: 0.6,
		BalancedCloudTokens:  100000,
	}
}

// AvailabilityProbe memoizes the local tier's availability per request so
// repeated routing decisions within a single reconstruct_prompt call
// don't re-probe.
type AvailabilityProbe struct {
	mu        sync.Mutex
	checked   bool
	available bool
	check     func() bool
}

func NewAvailabilityProbe(check func() bool) *AvailabilityProbe {
	return &AvailabilityProbe{check: check}
}

func (p *AvailabilityProbe) LocalAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.checked {
		p.available = p.check()
		p.checked = true
	}
	return p.available
}

// Route picks a model tier from token count and complexity using the
// given policy. probe memoizes local-tier availability across calls made
// for the same request; pass nil to assume the local tier is always
// available.
func Route(tokens int, complexity float64, t Thresholds, probe *AvailabilityProbe) Decision {
	localAvailable := probe == nil || probe.LocalAvailable()

	switch {
	case tokens < t.LocalFreeTokens && complexity < t.LocalFreeComplexity && localAvailable:
		return Decision{Model: TierLocalFree, Provider: "local", Reason: "small, low-complexity request fits the local-free tier", EstimatedCost: 0}
	case tokens < t.CloudFreeTokens && complexity < t.CloudFreeComplexity:
		return Decision{Model: TierCloudFree, Provider: "cloud", Reason: "moderate size and complexity fits the cloud-free tier", EstimatedCost: 0}
	case tokens < t.CheapCloudTokens && complexity < t.CheapCloudComplexity:
		return Decision{Model: TierCheapCloud, Provider: "cloud", Reason: "moderate size, low complexity routes to the cheap-cloud tier", EstimatedCost: estimateCost(tokens, 0.0005)}
	case tokens < t.BalancedCloudTokens:
		return Decision{Model: TierBalancedCloud, Provider: "cloud", Reason: "large request routes to the balanced-cloud tier", EstimatedCost: estimateCost(tokens, 0.003)}
	default:
		return Decision{Model: TierPremiumCloud, Provider: "cloud", Reason: "very large request requires the premium-cloud tier", EstimatedCost: estimateCost(tokens, 0.01)}
	}
}

func estimateCost(tokens int, perThousand float64) float64 {
	return float64(tokens) / 1000 * perThousand
}
