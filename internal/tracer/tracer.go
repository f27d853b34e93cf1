package tracer

import (
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const ServiceName = "contract-activity"

// StartTracer initializes the DataDog tracer, tagging spans with the network.
// If enabled is false, it starts a mock tracer instead
func StartTracer(enabled bool, network string) {
	if !enabled {
		mocktracer.Start()
		return
	}
	ddTracer.Start(
		ddTracer.WithEnv(network),
		ddTracer.WithServiceName(ServiceName),
		ddTracer.WithGlobalServiceName(true),
		ddTracer.WithDebugMode(false),
		ddTracer.WithLogStartup(false),
	)
}

// StopTracer flushes and stops the active tracer.
func StopTracer() {
	ddTracer.Stop()
}
