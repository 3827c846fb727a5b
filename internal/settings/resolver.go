package settings

// Store is the process-wide settings source. Get reports the raw value of
// a fully qualified key such as "web-panel.renderMode".
type Store interface {
	Get(key string) (any, bool)
}

// Resolver reads ExtensionConfig from a Store.
type Resolver struct {
	store Store
}

// NewResolver returns a Resolver over store. A nil store yields defaults.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve reads every key fresh. Missing keys and values of the wrong type
// fall back to Defaults.
func (r *Resolver) Resolve() ExtensionConfig {
	def := Defaults()
	return ExtensionConfig{
		RenderMode:        RenderMode(r.str(KeyRenderMode, string(def.RenderMode))),
		NavigationEnabled: r.boolean(KeyNavigationEnabled, def.NavigationEnabled),
		AllowExternal:     r.boolean(KeyAllowExternal, def.AllowExternal),
		SandboxLevel:      SandboxLevel(r.str(KeySandboxLevel, string(def.SandboxLevel))),
		URL:               r.str(KeyURL, def.URL),
	}
}

func (r *Resolver) get(key string) (any, bool) {
	if r == nil || r.store == nil {
		return nil, false
	}
	return r.store.Get(Section + "." + key)
}

func (r *Resolver) str(key, fallback string) string {
	v, ok := r.get(key)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

func (r *Resolver) boolean(key string, fallback bool) bool {
	v, ok := r.get(key)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}
