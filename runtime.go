package wscript

import (
	"context"
	"sync"
)

// DefaultStackBudget is the number of evaluation steps allowed on the host
// stack before the trampoline unwinds it.
const DefaultStackBudget = 200

// MaxStackBudget caps the budget so that host stack depth stays bounded no
// matter what a caller asks for.
const MaxStackBudget = 10000

type RuntimeConfig struct {
	StackBudget   int
	MaxBounces    int
	LogEvaluation bool
}

var (
	runtimeConfigMu sync.RWMutex
	runtimeConfig   = RuntimeConfig{
		StackBudget:   DefaultStackBudget,
		MaxBounces:    0,
		LogEvaluation: false,
	}
)

type runtimeConfigContextKey struct{}

type RuntimeConfigOverride struct {
	StackBudget   *int
	MaxBounces    *int
	LogEvaluation *bool
}

func SetRuntimeConfig(cfg RuntimeConfig) {
	runtimeConfigMu.Lock()
	defer runtimeConfigMu.Unlock()
	runtimeConfig = cfg
}

func GetRuntimeConfig() RuntimeConfig {
	runtimeConfigMu.RLock()
	defer runtimeConfigMu.RUnlock()
	return runtimeConfig
}

func WithRuntimeConfigOverride(ctx context.Context, override RuntimeConfigOverride) context.Context {
	return context.WithValue(ctx, runtimeConfigContextKey{}, override)
}

func effectiveRuntimeConfig(ctx context.Context) RuntimeConfig {
	cfg := GetRuntimeConfig()
	if ov, ok := ctx.Value(runtimeConfigContextKey{}).(RuntimeConfigOverride); ok {
		if ov.StackBudget != nil {
			cfg.StackBudget = *ov.StackBudget
		}
		if ov.MaxBounces != nil {
			cfg.MaxBounces = *ov.MaxBounces
		}
		if ov.LogEvaluation != nil {
			cfg.LogEvaluation = *ov.LogEvaluation
		}
	}
	if cfg.StackBudget <= 0 {
		cfg.StackBudget = DefaultStackBudget
	}
	if cfg.StackBudget > MaxStackBudget {
		cfg.StackBudget = MaxStackBudget
	}
	return cfg
}
