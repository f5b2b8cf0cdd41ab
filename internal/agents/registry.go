package agents

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
)

// Internal agent keys. Routing, persona storage, and prompt assembly
// all speak in these.
const (
	KeyOnboarding         = "onboarding"
	KeyOnboardingReminder = "onboarding_reminder"
	KeySales              = "sales"
	KeySupport            = "support"
	KeyOutContext         = "out_context"
	KeyNutrition          = "nutrition"
	KeyFitness            = "fitness"
)

// aliases maps storage identifiers to internal keys. The store carries
// identifiers from several generations of the persona catalog; anything
// unrecognized falls back to onboarding.
var aliases = map[string]string{
	"GREETING_WITHOUT_MEMORY": KeyOnboarding,
	"GREETING_WITH_MEMORY":    KeyOnboarding,
	"ONBOARDING_INIT":         KeyOnboarding,
	"ONBOARDING_PENDING":      KeyOnboarding,
	"ONBOARDING_REMINDER":     KeyOnboardingReminder,
	"DOUBT":                   KeySupport,
	"SALES":                   KeySales,
	"OUT_CONTEXT":             KeyOutContext,
	KeyOnboarding:             KeyOnboarding,
	KeyOnboardingReminder:     KeyOnboardingReminder,
	KeySales:                  KeySales,
	KeySupport:                KeySupport,
	KeyOutContext:             KeyOutContext,
	KeyNutrition:              KeyNutrition,
	KeyFitness:                KeyFitness,
}

// ResolveAlias maps a storage identifier to an internal agent key.
// Unmapped identifiers resolve to onboarding.
func ResolveAlias(identifier string) string {
	if key, ok := aliases[identifier]; ok {
		return key
	}
	return KeyOnboarding
}

// Registry resolves internal agent keys to persona definitions. The
// active set is an immutable map swapped atomically on reload, so
// readers always see either the old set or the fully-new set.
type Registry struct {
	store  *Store
	logger *slog.Logger
	defs   atomic.Pointer[map[string]Definition]
}

// NewRegistry creates a registry backed by store. A nil store is
// allowed; the registry then always serves the built-in set.
func NewRegistry(store *Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// Load populates the registry from the store, falling back to the
// built-in persona set when the store fails or holds no active
// records. It never leaves the registry empty.
func (r *Registry) Load(ctx context.Context) error {
	defs := r.loadFromStore()
	if len(defs) == 0 {
		builtins, err := Builtins()
		if err != nil {
			return err
		}
		defs = builtins
		r.logger.Warn("agent store unavailable or empty, using built-in personas",
			"count", len(defs))
	}
	r.defs.Store(&defs)
	r.logger.Info("agent registry loaded", "agents", len(defs))
	return nil
}

// Reload rebuilds the active set. In-flight requests keep the set they
// resolved against.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

func (r *Registry) loadFromStore() map[string]Definition {
	if r.store == nil {
		return nil
	}
	records, err := r.store.List()
	if err != nil {
		r.logger.Warn("load agents from store", "error", err)
		return nil
	}

	defs := make(map[string]Definition)
	for _, d := range records {
		if !d.Active {
			r.logger.Debug("skipping inactive agent", "identifier", d.Identifier)
			continue
		}
		key := ResolveAlias(d.Identifier)
		// Last write wins when two identifiers alias to one key.
		defs[key] = d
	}
	return defs
}

// Get returns the persona for an internal agent key.
func (r *Registry) Get(key string) (Definition, bool) {
	defs := r.defs.Load()
	if defs == nil {
		return Definition{}, false
	}
	d, ok := (*defs)[key]
	return d, ok
}

// Keys returns the loaded agent keys, sorted.
func (r *Registry) Keys() []string {
	defs := r.defs.Load()
	if defs == nil {
		return nil
	}
	keys := make([]string, 0, len(*defs))
	for k := range *defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
