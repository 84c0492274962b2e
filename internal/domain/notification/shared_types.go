// internal/domain/notification/shared_types.go
package notification

// Scope is the kind of resource a policy watches.
type Scope string

const (
	ScopeTransaction Scope = "transaction"
	ScopeGoal        Scope = "goal" // accepted, not evaluated by the runner
)

// Event is the condition a policy alerts on.
type Event string

const (
	EventDueSoon Event = "due_soon"
	EventOverdue Event = "overdue"
)

// Channel is a delivery channel declared on a policy.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp" // declared only; the runner delivers email
)

// ResourceType identifies what a State or Run row points at.
type ResourceType string

const (
	ResourceTransaction ResourceType = "transaction"
)

// RunStatus is the outcome of a single send attempt.
type RunStatus string

const (
	RunStatusSent  RunStatus = "sent"
	RunStatusError RunStatus = "error"
)
