package logger

const (
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"
	FieldService   = "service"

	// FieldActorID is also the echo context key the auth middleware sets.
	FieldActorID = "actor_id"
	FieldClubID  = "club_id"
)
