package repository

import (
	"fmt"
	"testing"

	"github.com/gigpost/gigpost/internal/models"
)

func TestGroupMembership(t *testing.T) {
	database := setupTestDB(t)
	userID := createTestUser(t, database)
	groups := NewGroupRepository(database)
	recipients := NewRecipientRepository(database)

	group := &models.Group{UserID: userID, Name: "newsletter", Description: "weekly"}
	if err := groups.Create(group); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec1 := &models.Recipient{UserID: userID, EmailAddress: "m1@test.com"}
	rec2 := &models.Recipient{UserID: userID, EmailAddress: "m2@test.com", Status: models.RecipientUnsubscribed}
	for _, rec := range []*models.Recipient{rec1, rec2} {
		if err := recipients.Create(rec); err != nil {
			t.Fatalf("recipient Create() error = %v", err)
		}
	}

	added, err := groups.AddMember(group.ID, rec1.ID)
	if err != nil || !added {
		t.Fatalf("AddMember() = %v, %v, want true, nil", added, err)
	}

	// adding again is a no-op
	added, err = groups.AddMember(group.ID, rec1.ID)
	if err != nil {
		t.Fatalf("AddMember() second error = %v", err)
	}
	if added {
		t.Error("AddMember() second = true, want false")
	}

	if _, err := groups.AddMember(group.ID, rec2.ID); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	got, _ := groups.GetByID(group.ID, userID)
	if got.TotalRecipients != 2 {
		t.Errorf("TotalRecipients = %d, want 2", got.TotalRecipients)
	}
	if got.ActiveRecipients != 1 {
		t.Errorf("ActiveRecipients = %d, want 1", got.ActiveRecipients)
	}

	active, err := groups.ActiveMembers(group.ID)
	if err != nil {
		t.Fatalf("ActiveMembers() error = %v", err)
	}
	if len(active) != 1 || active[0].EmailAddress != "m1@test.com" {
		t.Errorf("ActiveMembers() = %+v, want only m1", active)
	}

	removed, err := groups.RemoveMember(group.ID, rec1.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveMember() = %v, %v, want true, nil", removed, err)
	}

	removed, err = groups.RemoveMember(group.ID, rec1.ID)
	if err != nil {
		t.Fatalf("RemoveMember() second error = %v", err)
	}
	if removed {
		t.Error("RemoveMember() second = true, want false")
	}

	got, _ = groups.GetByID(group.ID, userID)
	if got.TotalRecipients != 1 || got.ActiveRecipients != 0 {
		t.Errorf("counts after remove = %d/%d, want 1/0", got.TotalRecipients, got.ActiveRecipients)
	}
}

func TestActiveMembersOrder(t *testing.T) {
	database := setupTestDB(t)
	userID := createTestUser(t, database)
	groups := NewGroupRepository(database)
	recipients := NewRecipientRepository(database)

	group := &models.Group{UserID: userID, Name: "ordered"}
	if err := groups.Create(group); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	want := []string{}
	for i := 0; i < 5; i++ {
		rec := &models.Recipient{UserID: userID, EmailAddress: fmt.Sprintf("r%d@test.com", i)}
		if err := recipients.Create(rec); err != nil {
			t.Fatalf("recipient %d: %v", i, err)
		}
		if _, err := groups.AddMember(group.ID, rec.ID); err != nil {
			t.Fatalf("member %d: %v", i, err)
		}
		want = append(want, rec.EmailAddress)
	}

	members, err := groups.ActiveMembers(group.ID)
	if err != nil {
		t.Fatalf("ActiveMembers() error = %v", err)
	}
	if len(members) != len(want) {
		t.Fatalf("ActiveMembers() len = %d, want %d", len(members), len(want))
	}
	for i, m := range members {
		if m.EmailAddress != want[i] {
			t.Errorf("member[%d] = %s, want %s", i, m.EmailAddress, want[i])
		}
	}
}

func TestGroupDelete(t *testing.T) {
	database := setupTestDB(t)
	userID := createTestUser(t, database)
	groups := NewGroupRepository(database)
	recipients := NewRecipientRepository(database)

	group := &models.Group{UserID: userID, Name: "doomed"}
	if err := groups.Create(group); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	rec := &models.Recipient{UserID: userID, EmailAddress: "kept@test.com"}
	if err := recipients.Create(rec); err != nil {
		t.Fatalf("recipient Create() error = %v", err)
	}
	if _, err := groups.AddMember(group.ID, rec.ID); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	if err := groups.Delete(group.ID, userID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, _ := groups.GetByID(group.ID, userID)
	if got != nil {
		t.Error("group still present after delete")
	}

	// the recipient itself survives group deletion
	kept, _ := recipients.GetByID(rec.ID, userID)
	if kept == nil {
		t.Error("recipient deleted along with group")
	}
}
