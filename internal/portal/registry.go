package portal

import (
	"fmt"
	"log/slog"

	"github.com/arturlm/jusbr/internal/captcha"
	"github.com/arturlm/jusbr/internal/model"
)

// Registry maps each tribunal to the adapters that cover its portals. A
// crawl task runs every adapter of its tribunal in order and merges the
// results.
type Registry struct {
	adapters map[model.Tribunal][]Adapter
}

type registrySettings struct {
	baseURLs map[string]string
	disabled map[string]bool
}

// RegistryOption adjusts the default portal set.
type RegistryOption func(*registrySettings)

// WithBaseURLOverrides replaces portal base URLs, keyed by adapter name
// (e.g. "trf1-pje1g"). Used when a tribunal migrates a portal to a new
// host between releases.
func WithBaseURLOverrides(overrides map[string]string) RegistryOption {
	return func(s *registrySettings) {
		for name, u := range overrides {
			s.baseURLs[name] = u
		}
	}
}

// WithDisabledPortals removes portals from the registry by adapter name.
func WithDisabledPortals(names ...string) RegistryOption {
	return func(s *registrySettings) {
		for _, name := range names {
			s.disabled[name] = true
		}
	}
}

// NewRegistry wires the default portal set: pje first and second
// instance for TRF1, TRF3 and TRF6, eproc for TRF2 (first instance
// only), TRF4 and TRF6, and TRF5's captcha-guarded consultation portal.
func NewRegistry(solver captcha.Solver, logger *slog.Logger, opts ...RegistryOption) *Registry {
	settings := registrySettings{
		baseURLs: map[string]string{},
		disabled: map[string]bool{},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	pjeConfigs := []Config{
		pjeTRF1(model.GradePJe1, "https://pje1g.trf1.jus.br"),
		pjeTRF1(model.GradePJe2, "https://pje2g.trf1.jus.br"),
		pjeTRF3(model.GradePJe1, "https://pje1g.trf3.jus.br"),
		pjeTRF3(model.GradePJe2, "https://pje2g.trf3.jus.br"),
		pjeTRF5(),
		pjeTRF6(model.GradePJe1, "https://pje1g.trf6.jus.br"),
		pjeTRF6(model.GradePJe2, "https://pje2g.trf6.jus.br"),
	}
	eprocConfigs := []Config{
		eprocConfig(model.TRF2, model.GradeEproc1, "https://eproc-consulta.trf2.jus.br"),
		eprocConfig(model.TRF4, model.GradeEproc1, "https://eproc.trf4.jus.br"),
		eprocConfig(model.TRF6, model.GradeEproc1, "https://eproc1g.trf6.jus.br"),
		eprocConfig(model.TRF6, model.GradeEproc2, "https://eproc2g.trf6.jus.br"),
	}

	r := &Registry{adapters: map[model.Tribunal][]Adapter{}}
	add := func(cfgs []Config, build func(Config) Adapter) {
		for _, cfg := range cfgs {
			name := fmt.Sprintf("%s-%s", cfg.Tribunal, cfg.Grade)
			if settings.disabled[name] {
				continue
			}
			if u, ok := settings.baseURLs[name]; ok {
				cfg.BaseURL = u
			}
			r.adapters[cfg.Tribunal] = append(r.adapters[cfg.Tribunal], build(cfg))
		}
	}
	add(pjeConfigs, func(cfg Config) Adapter { return NewPJE(cfg, solver, logger) })
	add(eprocConfigs, func(cfg Config) Adapter { return NewEproc(cfg, solver, logger) })
	return r
}

// For returns the adapters covering a tribunal, in crawl order.
func (r *Registry) For(tribunal model.Tribunal) []Adapter {
	return r.adapters[tribunal]
}
