package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tasklane/taskapi/internal/core/domain"
	"github.com/tasklane/taskapi/internal/core/ports"
)

func newUserSvc(repo *stubUserRepo) ports.UserService {
	return NewUserService(repo, stubHasher{}, zerolog.Nop())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
func rolePtr(r domain.Role) *domain.Role { return &r }

func twoUsers() *stubUserRepo {
	return newStubUserRepo(
		seedUser(1, "admin@admin.com", domain.RoleAdmin, true),
		seedUser(2, "ana@example.com", domain.RoleUser, true),
		seedUser(3, "bob@example.com", domain.RoleUser, true),
	)
}

func TestUserService_List(t *testing.T) {
	svc := newUserSvc(twoUsers())

	all, err := svc.List(context.Background(), adminClaims())
	if err != nil || len(all) != 3 {
		t.Fatalf("admin List: got %d users, err %v", len(all), err)
	}

	self, err := svc.List(context.Background(), userClaims(2))
	if err != nil || len(self) != 1 || self[0].ID != 2 {
		t.Fatalf("user List: got %+v, err %v", self, err)
	}

	if _, err := svc.List(context.Background(), userClaims(99)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for vanished caller, got %v", err)
	}
}

func TestUserService_Get_PolicyBeforeLookup(t *testing.T) {
	svc := newUserSvc(twoUsers())

	if _, err := svc.Get(context.Background(), userClaims(2), 3); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// A missing target is still forbidden for regular users.
	if _, err := svc.Get(context.Background(), userClaims(2), 404); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for unknown id, got %v", err)
	}
	if _, err := svc.Get(context.Background(), adminClaims(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for admin, got %v", err)
	}
	if u, err := svc.Get(context.Background(), userClaims(2), 2); err != nil || u.ID != 2 {
		t.Fatalf("expected own profile, got %+v / %v", u, err)
	}
}

func TestUserService_Create(t *testing.T) {
	repo := twoUsers()
	svc := newUserSvc(repo)
	in := ports.CreateUserInput{
		FirstName: "New", LastName: "Person", UserName: "newbie",
		Email: "new@example.com", Password: "secret", Role: domain.RoleAdmin,
	}

	_, err := svc.Create(context.Background(), userClaims(2), in)
	if !errors.Is(err, domain.ErrForbidden) || messageOf(t, err) != "Only administrators can create users" {
		t.Fatalf("expected admin-only forbidden, got %v", err)
	}

	created, err := svc.Create(context.Background(), adminClaims(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Role != domain.RoleAdmin || !created.IsActive || created.PasswordHash != "hashed:secret" {
		t.Fatalf("unexpected created user %+v", created)
	}

	in.Email = "ana@example.com"
	if _, err := svc.Create(context.Background(), adminClaims(), in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	in.Email = "bad-role@example.com"
	in.Role = "root"
	if _, err := svc.Create(context.Background(), adminClaims(), in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad role, got %v", err)
	}
}

func TestUserService_Create_DefaultRole(t *testing.T) {
	svc := newUserSvc(twoUsers())

	created, err := svc.Create(context.Background(), adminClaims(), ports.CreateUserInput{
		FirstName: "D", LastName: "R", UserName: "default", Email: "d@example.com", Password: "secret",
	})
	if err != nil || created.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %+v / %v", created, err)
	}
}

func TestUserService_Update(t *testing.T) {
	repo := twoUsers()
	svc := newUserSvc(repo)
	in := ports.UpdateUserInput{
		FirstName: "Ana", LastName: "Maria", UserName: "anam",
		Email: "ana.m@example.com", Password: "newsecret",
	}

	updated, err := svc.Update(context.Background(), userClaims(2), 2, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "ana.m@example.com" || updated.Role != domain.RoleUser || updated.UpdatedAt == nil {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if repo.users[2].PasswordHash != "hashed:newsecret" {
		t.Fatalf("expected password to be rehashed")
	}

	if _, err := svc.Update(context.Background(), userClaims(2), 3, in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden on other user, got %v", err)
	}
	if _, err := svc.Update(context.Background(), adminClaims(), 404, in); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	in.Email = "bob@example.com"
	if _, err := svc.Update(context.Background(), userClaims(2), 2, in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on taken email, got %v", err)
	}
}

func TestUserService_SelfPromotionDenied(t *testing.T) {
	repo := twoUsers()
	svc := newUserSvc(repo)

	_, err := svc.Patch(context.Background(), userClaims(2), 2, ports.PatchUserInput{Role: rolePtr(domain.RoleAdmin)})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden self-promotion, got %v", err)
	}
	_, err = svc.Patch(context.Background(), userClaims(2), 2, ports.PatchUserInput{IsActive: boolPtr(false)})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden status change, got %v", err)
	}
	if repo.users[2].Role != domain.RoleUser || !repo.users[2].IsActive {
		t.Fatalf("store must be unchanged: %+v", repo.users[2])
	}

	// Sending the current values is allowed.
	if _, err := svc.Patch(context.Background(), userClaims(2), 2, ports.PatchUserInput{
		Role: rolePtr(domain.RoleUser), IsActive: boolPtr(true),
	}); err != nil {
		t.Fatalf("expected no-op privileged fields to pass, got %v", err)
	}

	promoted, err := svc.Patch(context.Background(), adminClaims(), 2, ports.PatchUserInput{Role: rolePtr(domain.RoleAdmin)})
	if err != nil || promoted.Role != domain.RoleAdmin {
		t.Fatalf("expected admin to promote, got %+v / %v", promoted, err)
	}
}

func TestUserService_Patch_OnlyGivenFields(t *testing.T) {
	repo := twoUsers()
	svc := newUserSvc(repo)

	patched, err := svc.Patch(context.Background(), userClaims(3), 3, ports.PatchUserInput{FirstName: strPtr("Robert")})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.FirstName != "Robert" || patched.LastName != "Last" || patched.Email != "bob@example.com" {
		t.Fatalf("unexpected patch result %+v", patched)
	}
	if repo.users[3].PasswordHash != "hashed:secret" {
		t.Fatalf("password must be kept when not given")
	}

	if _, err := svc.Patch(context.Background(), userClaims(3), 3, ports.PatchUserInput{Password: strPtr("another")}); err != nil {
		t.Fatalf("Patch password: %v", err)
	}
	if repo.users[3].PasswordHash != "hashed:another" {
		t.Fatalf("expected password rehash")
	}
}

func TestUserService_Delete(t *testing.T) {
	repo := twoUsers()
	svc := newUserSvc(repo)

	if err := svc.Delete(context.Background(), userClaims(2), 3); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), adminClaims(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), userClaims(2), 2); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	if _, ok := repo.users[2]; ok {
		t.Fatalf("expected user 2 to be removed")
	}

	no := false
	repo.deleteOK = &no
	if err := svc.Delete(context.Background(), adminClaims(), 3); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected internal when store deletes nothing, got %v", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserSvc(repo)
	seed := ports.AdminSeed{Email: "admin@admin.com", Password: "admin123"}

	created, err := svc.EnsureAdmin(context.Background(), seed)
	if err != nil || !created {
		t.Fatalf("expected seed admin, got %v / %v", created, err)
	}
	if n, _ := repo.CountByRole(context.Background(), domain.RoleAdmin); n != 1 {
		t.Fatalf("expected one admin, got %d", n)
	}

	created, err = svc.EnsureAdmin(context.Background(), seed)
	if err != nil || created {
		t.Fatalf("expected second call to be a no-op, got %v / %v", created, err)
	}

	if _, err := svc.EnsureAdmin(context.Background(), ports.AdminSeed{Email: "x@y.z"}); err == nil {
		t.Fatalf("expected error without password")
	}
}
