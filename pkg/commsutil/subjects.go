package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectDispatchEvent = "fred.gateway.dispatched"
	gatewayApp           = "fred"
	gatewayName          = "gateway"
)

// BuildDispatchSubject builds the per-operation dispatch event subject.
func BuildDispatchSubject(global, operation string) string {
	return fmt.Sprintf("%s.%s", global, sanitizeToken(operation))
}

// BuildCapabilitySubject builds a COMMS subject for a capability.
func BuildCapabilitySubject(app, name string, major int) string {
	safe := strings.ReplaceAll(name, ".", "_")
	return fmt.Sprintf("cap.%s.%s.v%d", app, safe, major)
}

// GatewaySubject returns the request subject served by the gateway at the given major version.
func GatewaySubject(major int) string {
	return BuildCapabilitySubject(gatewayApp, gatewayName, major)
}

// sanitizeToken keeps a name usable as a single subject token.
func sanitizeToken(s string) string {
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	if s == "" {
		return "unknown"
	}
	return r.Replace(s)
}
