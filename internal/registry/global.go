package registry

import "github.com/ark-flow/arkflow/internal/component"

// Global, process-wide registries, one per component kind, populated by
// adapter init() functions in internal/impl.
var (
	Inputs     = New[component.Input]()
	Outputs    = New[component.Output]()
	Processors = New[component.Processor]()
	Buffers    = New[component.Buffer]()
)
