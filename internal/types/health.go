package types

import (
	"fmt"
	"time"
)

// HealthState represents the health state of a component.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

// String returns the string representation of HealthState.
func (s HealthState) String() string {
	return string(s)
}

// IsValid checks if the HealthState is a known value.
func (s HealthState) IsValid() bool {
	switch s {
	case HealthStateHealthy, HealthStateDegraded, HealthStateUnhealthy:
		return true
	default:
		return false
	}
}

// HealthStatus pairs a health state with a message and check timestamp.
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Healthy creates a HealthStatus in the healthy state.
func Healthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateHealthy, Message: message, CheckedAt: time.Now()}
}

// Degraded creates a HealthStatus in the degraded state.
func Degraded(message string) HealthStatus {
	return HealthStatus{State: HealthStateDegraded, Message: message, CheckedAt: time.Now()}
}

// Unhealthy creates a HealthStatus in the unhealthy state.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateUnhealthy, Message: message, CheckedAt: time.Now()}
}

// Unhealthyf creates an unhealthy HealthStatus with a formatted message.
func Unhealthyf(format string, args ...any) HealthStatus {
	return Unhealthy(fmt.Sprintf(format, args...))
}

// IsHealthy returns true if the state is healthy.
func (h HealthStatus) IsHealthy() bool { return h.State == HealthStateHealthy }

// IsDegraded returns true if the state is degraded.
func (h HealthStatus) IsDegraded() bool { return h.State == HealthStateDegraded }

// IsUnhealthy returns true if the state is unhealthy.
func (h HealthStatus) IsUnhealthy() bool { return h.State == HealthStateUnhealthy }
