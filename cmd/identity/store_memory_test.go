package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pedeai/cmd/security/password"
)

func TestMemoryStore_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	in := validInput("  Alice@Example.com ", "Alice   Souza")
	in.CPFCNPJ = " 529.982.247-25 "
	in.Now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := s.RegisterUser(ctx, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	p := res.Profile
	if len(p.ID) != 26 {
		t.Fatalf("expected ULID id, got %q", p.ID)
	}
	if p.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", p.Email)
	}
	if p.FullName != "Alice Souza" {
		t.Fatalf("full name not normalized: %q", p.FullName)
	}
	if p.Plan != PlanFree {
		t.Fatalf("plan: got %q", p.Plan)
	}
	if p.AvatarURL != "https://ui-avatars.com/api/?name=Alice+Souza" {
		t.Fatalf("avatar: got %q", p.AvatarURL)
	}
	if p.CPFCNPJ == nil || *p.CPFCNPJ != "529.982.247-25" {
		t.Fatalf("cpf_cnpj not trimmed: %v", p.CPFCNPJ)
	}
	if p.Phone == nil || *p.Phone != "(11) 99999-0000" || p.Address == nil || *p.Address != "Rua das Flores, 10" {
		t.Fatalf("profile fields not stored: %v %v", p.Phone, p.Address)
	}

	cred, err := s.GetCredentialByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if cred.UserID != p.ID {
		t.Fatalf("credential user id mismatch")
	}
	if !password.Verify(cred.PasswordHash, "hunter2x") {
		t.Fatalf("stored hash does not verify")
	}
	if strings.Contains(cred.PasswordHash, "hunter2x") {
		t.Fatalf("plaintext leaked into hash")
	}

	got, err := s.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.ID != p.ID || got.Email != p.Email || *got.CPFCNPJ != *p.CPFCNPJ || *got.Phone != *p.Phone || *got.Address != *p.Address {
		t.Fatalf("profile mismatch:\n got %+v\nwant %+v", got, p)
	}
}

func TestMemoryStore_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.RegisterUser(ctx, validInput("bob@example.com", "Bob Lima")); err != nil {
		t.Fatalf("register 1: %v", err)
	}
	_, err := s.RegisterUser(ctx, validInput("BOB@example.com", "Bob Segundo"))
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email conflict, got %#v", err)
	}
}

func TestMemoryStore_ConcurrentRegisterSameEmail(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, confl int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RegisterUser(ctx, validInput("race@example.com", "Race"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case IsConflict(err):
				confl++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || confl != n-1 {
		t.Fatalf("expected exactly one winner, got ok=%d conflicts=%d", ok, confl)
	}
}

func TestMemoryStore_RegisterInvalidInput(t *testing.T) {
	t.Parallel()

	cfg := password.DefaultConfig()
	cfg.Policy.RejectVeryWeak = true
	s := NewMemoryStore(WithMemoryPasswordConfig(cfg))
	ctx := context.Background()

	with := func(edit func(*RegisterInput)) RegisterInput {
		in := validInput("x@example.com", "Xavier")
		edit(&in)
		return in
	}

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", with(func(in *RegisterInput) { in.Email = "" })},
		{"missing name", with(func(in *RegisterInput) { in.FullName = "   " })},
		{"short name", with(func(in *RegisterInput) { in.FullName = " B " })},
		{"missing cpf_cnpj", with(func(in *RegisterInput) { in.CPFCNPJ = "" })},
		{"repeated cpf", with(func(in *RegisterInput) { in.CPFCNPJ = "111.111.111-11" })},
		{"bad cpf check digit", with(func(in *RegisterInput) { in.CPFCNPJ = "529.982.247-26" })},
		{"bad cnpj check digit", with(func(in *RegisterInput) { in.CPFCNPJ = "11.222.333/0001-82" })},
		{"short phone", with(func(in *RegisterInput) { in.Phone = "1" })},
		{"short address", with(func(in *RegisterInput) { in.Address = "x" })},
		{"missing password", with(func(in *RegisterInput) { in.Password = "" })},
		{"short password", with(func(in *RegisterInput) { in.Password = "abc" })},
		{"weak password", with(func(in *RegisterInput) { in.Password = "123456" })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RegisterUser(ctx, tc.in)
			if !IsInvalidInput(err) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if _, err := s.GetCredentialByEmail(ctx, "x@example.com"); !IsNotFound(err) {
				t.Fatalf("rejected registration left a credential: %v", err)
			}
		})
	}
}

func TestMemoryStore_RegisterAcceptsCNPJ(t *testing.T) {
	t.Parallel()

	in := validInput("loja@example.com", "Loja Central")
	in.CPFCNPJ = "11.222.333/0001-81"
	res, err := NewMemoryStore().RegisterUser(context.Background(), in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if *res.Profile.CPFCNPJ != "11.222.333/0001-81" {
		t.Fatalf("cnpj not stored: %q", *res.Profile.CPFCNPJ)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetCredentialByEmail(ctx, "nobody@example.com"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetProfile(ctx, "01JQ2Z8W9T3V6N4B7C5D1E0F2G"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_DeleteProfileKeepsCredential(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	res, err := s.RegisterUser(ctx, validInput("carol@example.com", "Carol"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	s.DeleteProfile(res.Profile.ID)

	if _, err := s.GetCredentialByEmail(ctx, "carol@example.com"); err != nil {
		t.Fatalf("credential should remain: %v", err)
	}
	if _, err := s.GetProfile(ctx, res.Profile.ID); !IsNotFound(err) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestMemoryStore_RecordAudit(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	if err := s.RecordAudit(context.Background(), AuditEntry{Action: "auth.logout"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := s.AuditEntries()
	if len(got) != 1 || got[0].Action != "auth.logout" || got[0].At.IsZero() {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestDefaultAvatarURL_Escapes(t *testing.T) {
	t.Parallel()

	got := DefaultAvatarURL("José & Maria")
	want := "https://ui-avatars.com/api/?name=Jos%C3%A9+%26+Maria"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

// validInput returns a registration that passes every field rule.
func validInput(email, fullName string) RegisterInput {
	return RegisterInput{
		Email:    email,
		Password: "hunter2x",
		FullName: fullName,
		CPFCNPJ:  "529.982.247-25",
		Phone:    "(11) 99999-0000",
		Address:  "Rua das Flores, 10",
	}
}
