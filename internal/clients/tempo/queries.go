package tempo

import (
	"fmt"
	"time"
)

// BuildServiceQuery constructs a TraceQL query to find all traces involving a specific service.
// An empty service matches every trace.
func BuildServiceQuery(serviceName string) string {
	if serviceName == "" {
		return "{}"
	}
	return fmt.Sprintf("{ resource.service.name = %q }", serviceName)
}

// BuildSlowSpansQuery constructs a TraceQL query for spans of a service that last longer than minDuration.
func BuildSlowSpansQuery(serviceName string, minDuration time.Duration) string {
	if minDuration <= 0 {
		return BuildServiceQuery(serviceName)
	}
	if serviceName == "" {
		return fmt.Sprintf("{ duration > %dms }", minDuration.Milliseconds())
	}
	return fmt.Sprintf("{ resource.service.name = %q && duration > %dms }", serviceName, minDuration.Milliseconds())
}
