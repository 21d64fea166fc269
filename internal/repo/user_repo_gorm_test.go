package repo

import (
	"errors"
	"testing"
)

func TestIsDupKey(t *testing.T) {
	dup := []string{
		"Error 1062 (23000): Duplicate entry 'admin' for key 'users.idx_username'",
		`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`,
		"UNIQUE constraint failed: users.username",
	}
	for _, msg := range dup {
		if !isDupKey(errors.New(msg)) {
			t.Errorf("not detected as duplicate: %s", msg)
		}
	}

	if isDupKey(errors.New("connection refused")) {
		t.Error("connection error misread as duplicate")
	}
	if isDupKey(errors.New("syntax error at or near SELECT")) {
		t.Error("syntax error misread as duplicate")
	}
}
