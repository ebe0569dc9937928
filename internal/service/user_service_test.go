package service

import "testing"

func strPtr(s string) *string { return &s }

func TestUpdateMe(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "a@example.com")
	e.createUser(t, "taken@example.com")

	got, err := e.userSvc.UpdateMe(u.ID, ProfileUpdate{Name: strPtr("Ana Paula"), PixKey: strPtr(" 11999990000 ")})
	if err != nil {
		t.Fatalf("UpdateMe failed: %v", err)
	}
	if got.Name != "Ana Paula" || got.PixKey == nil || *got.PixKey != "11999990000" {
		t.Errorf("Unexpected user: %+v", got)
	}

	_, err = e.userSvc.UpdateMe(u.ID, ProfileUpdate{Email: strPtr("TAKEN@example.com")})
	assertErrorIs(t, err, ErrEmailExists)
	// Keeping one's own email is not a conflict.
	if _, err := e.userSvc.UpdateMe(u.ID, ProfileUpdate{Email: strPtr("a@example.com")}); err != nil {
		t.Errorf("UpdateMe with own email failed: %v", err)
	}
	_, err = e.userSvc.UpdateMe(u.ID, ProfileUpdate{Password: strPtr("123")})
	assertErrorIs(t, err, ErrInvalidInput)
}

func TestListUsers(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "alice@example.com")
	e.createUser(t, "bob@example.com")

	list, total, err := e.userSvc.ListUsers("alice", "", 0, 0)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Email != "alice@example.com" {
		t.Errorf("Unexpected result: total=%d list=%+v", total, list)
	}
}

func TestUpdateMe_DuplicateKeyOnUpdateIsEmailExists(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "a@example.com")
	gone := e.createUser(t, "gone@example.com")
	if err := e.db.Delete(gone).Error; err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := e.userSvc.UpdateMe(u.ID, ProfileUpdate{Email: strPtr("gone@example.com")})
	assertErrorIs(t, err, ErrEmailExists)
}
