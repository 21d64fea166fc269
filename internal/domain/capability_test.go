package domain

import "testing"

func TestRoleCapabilityMatrix(t *testing.T) {
	all := []Capability{
		CapManageUsers, CapManageFleet, CapRecordOperations,
		CapViewAudit, CapResetDatabase,
	}

	for _, c := range all {
		if !RoleAdmin.HasCapability(c) {
			t.Errorf("ADMIN lacks %s", c)
		}
	}

	if !RoleAuditor.HasCapability(CapViewAudit) {
		t.Error("AUDITOR lacks VIEW_AUDIT")
	}
	for _, c := range []Capability{CapManageUsers, CapManageFleet, CapRecordOperations, CapResetDatabase} {
		if RoleAuditor.HasCapability(c) {
			t.Errorf("AUDITOR must not hold %s", c)
		}
	}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	if Role("SUPERUSER").HasCapability(CapViewAudit) {
		t.Error("unknown role granted a capability")
	}
	if RoleAdmin.HasCapability(Capability("TIME_TRAVEL")) {
		t.Error("unknown capability granted")
	}
}
