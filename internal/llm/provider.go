package llm

import "context"

// CapabilityGenerate marks a model as able to serve text-generation
// requests. Models without it never participate in resolution.
const CapabilityGenerate = "generateContent"

type ModelInfo struct {
	ID           string
	Capabilities []string
}

func (m ModelInfo) SupportsGenerate() bool {
	for _, c := range m.Capabilities {
		if c == CapabilityGenerate {
			return true
		}
	}
	return false
}

// Provider is the completion provider consumed by the resolver and the
// insight orchestrator. Context data, when present, is serialized and sent
// alongside the prompt; its content is uninterpreted.
type Provider interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Complete(ctx context.Context, prompt string, contextData interface{}, model string) (string, error)
}
