package steps

import (
	"github.com/issuegate/issuegate/internal/core/pipeline"
)

// RegisterAll registers every step factory with the given registry.
func RegisterAll(r *pipeline.Registry) {
	r.Register("gatekeeper", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewGatekeeper(deps), nil
	})

	r.Register("text_scanner", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewTextScanner(deps), nil
	})

	r.Register("closing_refs", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewClosingRefs(deps), nil
	})

	r.Register("timeline_fallback", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewTimelineFallback(deps), nil
	})

	r.Register("reporter", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewReporter(deps), nil
	})
}
