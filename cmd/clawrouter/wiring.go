package main

import (
	"fmt"
	"math/big"

	"github.com/edgeandnode/ClawRouter/internal/classifier"
	"github.com/edgeandnode/ClawRouter/internal/config"
	"github.com/edgeandnode/ClawRouter/internal/model"
)

// buildRegistry turns the YAML-facing routing config into the model
// package's runtime types: a Registry (id -> Descriptor, plus aliases)
// and the ProfileTables every non-free profile selects from.
func buildRegistry(cfg config.RoutingConfig) (*model.Registry, model.ProfileTables, error) {
	descriptors := make([]model.Descriptor, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		descriptors = append(descriptors, model.Descriptor{
			ID:            m.ID,
			DisplayName:   m.DisplayName,
			Version:       m.Version,
			PriceInput:    m.PriceInput,
			PriceOutput:   m.PriceOutput,
			ContextWindow: m.ContextWindow,
			MaxOutputToks: m.MaxOutputToks,
			Reasoning:     m.Reasoning,
			Vision:        m.Vision,
			Agentic:       m.Agentic,
		})
	}
	registry := model.NewRegistry(descriptors, cfg.Aliases, cfg.BrandPrefix)

	eco, err := buildTierTable(cfg.Profiles.Eco)
	if err != nil {
		return nil, model.ProfileTables{}, fmt.Errorf("profile eco: %w", err)
	}
	auto, err := buildTierTable(cfg.Profiles.Auto)
	if err != nil {
		return nil, model.ProfileTables{}, fmt.Errorf("profile auto: %w", err)
	}
	premium, err := buildTierTable(cfg.Profiles.Premium)
	if err != nil {
		return nil, model.ProfileTables{}, fmt.Errorf("profile premium: %w", err)
	}
	agentic, err := buildTierTable(cfg.Profiles.Agentic)
	if err != nil {
		return nil, model.ProfileTables{}, fmt.Errorf("profile agentic: %w", err)
	}

	return registry, model.ProfileTables{Eco: eco, Auto: auto, Premium: premium, Agentic: agentic}, nil
}

func buildTierTable(tableCfg config.TierTableConfig) (model.TierTable, error) {
	table := make(model.TierTable, len(tableCfg))
	for tierName, row := range tableCfg {
		tier, ok := model.ParseTier(tierName)
		if !ok {
			return nil, fmt.Errorf("unknown tier name %q", tierName)
		}
		table[tier] = model.TierRow{Primary: row.Primary, Fallback: row.Fallback}
	}
	return table, nil
}

// buildClassifierConfig adapts the routing config's tunables into the
// classifier package's Config shape.
func buildClassifierConfig(cfg config.RoutingConfig) (classifier.Config, error) {
	ambiguous, ok := model.ParseTier(cfg.AmbiguousDefaultTier)
	if !ok {
		return classifier.Config{}, fmt.Errorf("unknown ambiguous_default_tier %q", cfg.AmbiguousDefaultTier)
	}
	weights := make(classifier.Weights, len(cfg.Weights))
	for k, v := range cfg.Weights {
		weights[k] = v
	}
	return classifier.Config{
		Weights: weights,
		Boundaries: classifier.Boundaries{
			SimpleMedium:     cfg.SimpleMedium,
			MediumComplex:    cfg.MediumComplex,
			ComplexReasoning: cfg.ComplexReasoning,
		},
		SigmoidSteepness:           cfg.SigmoidSteepness,
		ConfidenceThreshold:        cfg.ConfidenceThreshold,
		AmbiguousDefaultTier:       ambiguous,
		AgenticThreshold:           cfg.AgenticThreshold,
		ReasoningMarkerForce:       true,
		TokenCountSimpleThreshold:  cfg.TokenCountSimpleT,
		TokenCountComplexThreshold: cfg.TokenCountComplexT,
	}, nil
}

// usdToMicroUnits converts a USD threshold into the ERC-20 asset's
// smallest unit, assuming a 6-decimal stablecoin (USDC) per spec.md §6.
func usdToMicroUnits(usd float64) *big.Int {
	micro := new(big.Float).Mul(big.NewFloat(usd), big.NewFloat(1_000_000))
	out, _ := micro.Int(nil)
	return out
}
