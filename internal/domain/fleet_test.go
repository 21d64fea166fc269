package domain

import "testing"

func TestWipeOrderCoversEveryEntity(t *testing.T) {
	order := WipeOrder()
	if len(order) != len(entityOrder) {
		t.Fatalf("order length = %d, want %d", len(order), len(entityOrder))
	}
	seen := map[EntityType]bool{}
	for _, e := range order {
		if seen[e] {
			t.Fatalf("%s appears twice", e)
		}
		seen[e] = true
	}
}

func TestWipeOrderChildrenBeforeParents(t *testing.T) {
	pos := map[EntityType]int{}
	for i, e := range WipeOrder() {
		pos[e] = i
	}
	for child, parents := range entityDeps {
		for _, parent := range parents {
			if pos[child] > pos[parent] {
				t.Errorf("%s wiped after its parent %s", child, parent)
			}
		}
	}
}

func TestWipeOrderAuditFirstUserLast(t *testing.T) {
	order := WipeOrder()
	if order[0] != EntityAuditRecord {
		t.Fatalf("first = %s, want %s", order[0], EntityAuditRecord)
	}
	if order[len(order)-1] != EntityUser {
		t.Fatalf("last = %s, want %s", order[len(order)-1], EntityUser)
	}
}

func TestModelForEveryWipedEntity(t *testing.T) {
	for _, e := range WipeOrder() {
		if ModelFor(e) == nil {
			t.Errorf("no model for %s", e)
		}
	}
	if ModelFor(EntityDatabase) != nil {
		t.Error("DATABASE is an audit target, not a table")
	}
}
