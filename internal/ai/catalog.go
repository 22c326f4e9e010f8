package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ModelInfo is pricing and context metadata for one model. Prices are
// illustrative and should be checked against the provider.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

// Tiers accepted by RecommendModel.
const (
	TierCheap    = "cheap"
	TierBalanced = "balanced"
	TierLarge    = "high-context"
)

type catalogEntry struct {
	ModelInfo
	tiers []string
}

var builtin = []catalogEntry{
	{ModelInfo{"deepseek/deepseek-r1:free", ProviderOpenRouter, 128000, 0, 0}, []string{TierCheap}},
	{ModelInfo{"openai/gpt-4o-mini", ProviderOpenRouter, 128000, 0.0006, 0.0024}, nil},
	{ModelInfo{"openai/gpt-4o", ProviderOpenRouter, 128000, 0.005, 0.015}, []string{TierBalanced}},
	{ModelInfo{"openai/gpt-4.1-mini", ProviderOpenRouter, 128000, 0.0005, 0.0015}, nil},
	{ModelInfo{"anthropic/claude-3.5-sonnet", ProviderOpenRouter, 200000, 0.003, 0.015}, []string{TierLarge}},
	{ModelInfo{"anthropic/claude-3-haiku", ProviderOpenRouter, 200000, 0.00025, 0.00125}, nil},
	{ModelInfo{"google/gemini-1.5-flash", ProviderOpenRouter, 1000000, 0.0002, 0.0008}, nil},
	{ModelInfo{"gpt-4o-mini", ProviderOpenAI, 128000, 0.00015, 0.0006}, []string{TierCheap}},
	{ModelInfo{"gpt-4o", ProviderOpenAI, 128000, 0.0025, 0.01}, []string{TierBalanced, TierLarge}},
	{ModelInfo{"gpt-4.1-mini", ProviderOpenAI, 1000000, 0.0004, 0.0016}, nil},
	{ModelInfo{"llama3.1:8b-instruct", ProviderOllama, 8192, 0, 0}, []string{TierCheap}},
	{ModelInfo{"llama3.1:70b-instruct", ProviderOllama, 8192, 0, 0}, []string{TierBalanced}},
	{ModelInfo{"mistral-nemo:latest", ProviderOllama, 8192, 0, 0}, nil},
	{ModelInfo{"phi3:mini-128k-instruct", ProviderOllama, 128000, 0, 0}, []string{TierLarge}},
}

var models = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(builtin))
	for _, e := range builtin {
		m[e.Name] = e.ModelInfo
	}
	return m
}()

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// PresetCatalog returns the built-in models for a provider.
func PresetCatalog(provider string) (map[string]ModelInfo, bool) {
	out := map[string]ModelInfo{}
	for _, e := range builtin {
		if e.Provider == provider {
			out[e.Name] = e.ModelInfo
		}
	}
	return out, len(out) > 0
}

// RecommendModel returns the built-in pick for a provider and tier.
// An empty provider means openrouter.
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderOpenRouter
	}
	for _, e := range builtin {
		if e.Provider != provider {
			continue
		}
		for _, t := range e.tiers {
			if t == tier {
				return e.Name, true
			}
		}
	}
	return "", false
}

// DefaultModel is the balanced recommendation for a provider.
func DefaultModel(provider string) string {
	name, _ := RecommendModel(provider, TierBalanced)
	return name
}

// LoadCatalogFromJSON loads a JSON object of name → ModelInfo from path.
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]ModelInfo
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}

// OverrideCatalog replaces the in-memory catalog with m.
func OverrideCatalog(m map[string]ModelInfo) {
	models = make(map[string]ModelInfo, len(m))
	MergeCatalog(m)
}

// Catalog returns the current catalog sorted by provider then name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}
