package model

// Profile is a named routing profile (spec.md §3 "Routing profile").
// Exactly free|eco|auto|premium are recognized profile names; an
// "agentic" table exists but is reached only implicitly through auto
// when the classifier's agentic sub-score crosses a threshold (spec.md
// §9 Open Question #1 — decided in DESIGN.md).
type Profile string

const (
	ProfileFree    Profile = "free"
	ProfileEco     Profile = "eco"
	ProfileAuto    Profile = "auto"
	ProfilePremium Profile = "premium"
	// profileAgentic is never a recognized alias target; it only
	// selects a TierTable internally once Auto + agentic-sub-score.
	profileAgentic Profile = "agentic"
)

// TierRow is a tier's primary model plus an ordered fallback list.
type TierRow struct {
	Primary  string
	Fallback []string
}

// TierTable maps each Tier to a TierRow.
type TierTable map[Tier]TierRow

// Chain returns [primary, ...fallback] in declared order (spec.md §4.2
// getFallbackChain).
func (t TierTable) Chain(tier Tier) []string {
	row, ok := t[tier]
	if !ok {
		return nil
	}
	out := make([]string, 0, 1+len(row.Fallback))
	out = append(out, row.Primary)
	out = append(out, row.Fallback...)
	return out
}

// ProfileTables is the full set of non-free profile tier tables, plus the
// agentic sub-table of auto.
type ProfileTables struct {
	Eco     TierTable
	Auto    TierTable
	Premium TierTable
	Agentic TierTable // sub-table of Auto, selected implicitly
}

// TableFor resolves which TierTable a request should use, given the
// caller's profile and whether the classifier's agentic sub-score crossed
// the configured threshold. agenticEligible should already encode "profile
// == auto AND no explicit profile override AND score >= threshold" — see
// proxycore for the exact gating.
func (p ProfileTables) TableFor(profile Profile, agenticEligible bool) TierTable {
	switch profile {
	case ProfileEco:
		return p.Eco
	case ProfilePremium:
		return p.Premium
	case ProfileAuto:
		if agenticEligible {
			return p.Agentic
		}
		return p.Auto
	default:
		return p.Auto
	}
}
