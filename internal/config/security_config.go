package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecuritySession                      // Valid session required
)

// Route names used by the HTTP router. They double as keys of
// EndpointSecurityConfig.
const (
	RouteHealth                 = "Health"
	RoutePreviewReturn          = "PreviewReturn"
	RouteOpenReturnWorkflow     = "OpenReturnWorkflow"
	RouteGetReturnWorkflow      = "GetReturnWorkflow"
	RouteUpdateReturnItem       = "UpdateReturnItem"
	RouteSelectAllReturnItems   = "SelectAllReturnItems"
	RouteSubmitReturnWorkflow   = "SubmitReturnWorkflow"
	RouteCloseReturnWorkflow    = "CloseReturnWorkflow"
	RouteOpenExtensionWorkflow  = "OpenExtensionWorkflow"
	RouteGetExtensionWorkflow   = "GetExtensionWorkflow"
	RouteSetExtensionEndDate    = "SetExtensionEndDate"
	RouteCheckExtension         = "CheckExtension"
	RouteConfirmExtension       = "ConfirmExtension"
	RouteCloseExtensionWorkflow = "CloseExtensionWorkflow"
)

// EndpointSecurityConfig maps routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealth: SecurityPublic,

	// Pure calculation, no backend data involved
	RoutePreviewReturn: SecurityPublic,

	// Return workflows
	RouteOpenReturnWorkflow:   SecuritySession,
	RouteGetReturnWorkflow:    SecuritySession,
	RouteUpdateReturnItem:     SecuritySession,
	RouteSelectAllReturnItems: SecuritySession,
	RouteSubmitReturnWorkflow: SecuritySession,
	RouteCloseReturnWorkflow:  SecuritySession,

	// Extension workflows
	RouteOpenExtensionWorkflow:  SecuritySession,
	RouteGetExtensionWorkflow:   SecuritySession,
	RouteSetExtensionEndDate:    SecuritySession,
	RouteCheckExtension:         SecuritySession,
	RouteConfirmExtension:       SecuritySession,
	RouteCloseExtensionWorkflow: SecuritySession,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecuritySession
}
