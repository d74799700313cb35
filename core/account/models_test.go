package account

import "testing"

func TestSetCheckPassword(t *testing.T) {
	var a1, a2 Account
	if err := a1.SetPassword("s3cretW0rd!"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	if err := a2.SetPassword("s3cretW0rd!"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}

	if string(a1.PasswordHash) == "s3cretW0rd!" {
		t.Error("stored hash equals the plaintext password")
	}
	if string(a1.PasswordHash) == string(a2.PasswordHash) {
		t.Error("two accounts with identical passwords share the same hash; salting is broken")
	}

	if err := a1.CheckPassword("s3cretW0rd!"); err != nil {
		t.Errorf("CheckPassword() failed on the correct password: %v", err)
	}
	if err := a1.CheckPassword("s3cretW0rd"); err == nil {
		t.Error("CheckPassword() accepted a close-but-wrong password")
	}
	if err := a1.CheckPassword(""); err == nil {
		t.Error("CheckPassword() accepted an empty password")
	}
}

func TestDefaultSubjects(t *testing.T) {
	subjects := DefaultSubjects()
	if len(subjects) != len(defaultSubjectNames) {
		t.Fatalf("DefaultSubjects() len = %d; want %d", len(subjects), len(defaultSubjectNames))
	}

	seen := make(map[string]bool, len(subjects))
	for i, s := range subjects {
		if s.Name != defaultSubjectNames[i] {
			t.Errorf("subject[%d].Name = %q; want %q", i, s.Name, defaultSubjectNames[i])
		}
		if s.Mark != 0 {
			t.Errorf("subject %q seeded with mark %d; want 0", s.Name, s.Mark)
		}
		if s.ID == "" || seen[s.ID] {
			t.Errorf("subject %q has missing or duplicate identity %q", s.Name, s.ID)
		}
		seen[s.ID] = true
	}

	// identities must differ between accounts too
	if seen[DefaultSubjects()[0].ID] {
		t.Error("DefaultSubjects() reuses subject identities across calls")
	}
}

func TestAccountSubject(t *testing.T) {
	acct := Account{Subjects: DefaultSubjects()}
	want := acct.Subjects[2]

	got, ok := acct.Subject(want.ID)
	if !ok || got.Name != want.Name {
		t.Errorf("Subject(%q) = %+v, %v; want %+v", want.ID, got, ok, want)
	}
	if _, ok := acct.Subject("nope"); ok {
		t.Error("Subject() found a subject that does not exist")
	}
}
