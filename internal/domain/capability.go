package domain

// Capability is a named permission checked by the authorizer before any
// action takes effect.
type Capability string

const (
	CapManageUsers      Capability = "MANAGE_USERS"
	CapManageFleet      Capability = "MANAGE_FLEET"
	CapRecordOperations Capability = "RECORD_OPERATIONS"
	CapViewAudit        Capability = "VIEW_AUDIT"
	CapResetDatabase    Capability = "RESET_DATABASE"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: {
		CapManageUsers:      {},
		CapManageFleet:      {},
		CapRecordOperations: {},
		CapViewAudit:        {},
		CapResetDatabase:    {},
	},
	RoleAuditor: {
		CapViewAudit: {},
	},
}

// HasCapability reports whether a role grants the capability. Unknown
// roles grant nothing.
func (r Role) HasCapability(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}
