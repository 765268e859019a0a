package llm

import "fmt"

// ProviderConfig is the subset of runtime configuration needed to build
// a concrete Provider for one named backend.
type ProviderConfig struct {
	Name    string // "openai" | "anthropic" | "zhipuai"
	APIKey  string
	BaseURL string
}

// Factory builds a Provider by name. Concrete provider packages register
// themselves via RegisterFactory at package-init time, keeping this
// package free of a direct import cycle back to providers/*.
type Factory func(cfg ProviderConfig) Provider

var factories = map[string]Factory{}

// RegisterFactory binds name to a constructor. Called from each
// providers/* package's init().
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// Build constructs the named provider, or an error if no factory is
// registered under that name (the caller likely forgot to blank-import
// the provider package).
func Build(cfg ProviderConfig) (Provider, error) {
	f, ok := factories[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("llm: no provider registered for %q (forgot to import its package?)", cfg.Name)
	}
	return f(cfg), nil
}
