package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tasklane/taskapi/internal/core/domain"
)

func TestUsers_CreateAssignsIDsAndRejectsDuplicateEmail(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	a, err := users.Create(ctx, &domain.User{Email: "a@x.com", Role: domain.RoleUser})
	if err != nil || a.ID != 1 {
		t.Fatalf("first create: %+v / %v", a, err)
	}
	b, _ := users.Create(ctx, &domain.User{Email: "b@x.com", Role: domain.RoleAdmin})
	if b.ID != 2 {
		t.Fatalf("expected sequential ids, got %d", b.ID)
	}
	if _, err := users.Create(ctx, &domain.User{Email: "a@x.com"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n, _ := users.CountByRole(ctx, domain.RoleAdmin); n != 1 {
		t.Fatalf("expected 1 admin, got %d", n)
	}
}

func TestUsers_ReturnsCopies(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()
	created, _ := users.Create(ctx, &domain.User{Email: "a@x.com", FirstName: "A"})

	created.FirstName = "mutated"
	got, _ := users.FindByID(ctx, created.ID)
	if got.FirstName != "A" {
		t.Fatalf("store shares state with caller")
	}
}

func TestUsers_MissingRows(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	if u, err := users.FindByEmail(ctx, "none@x.com"); u != nil || err != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
	}
	if u, err := users.Update(ctx, &domain.User{ID: 42}); u != nil || err != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
	}
	if ok, err := users.Delete(ctx, 42); ok || err != nil {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestUsers_UpdateReindexesEmail(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()
	a, _ := users.Create(ctx, &domain.User{Email: "a@x.com"})
	_, _ = users.Create(ctx, &domain.User{Email: "b@x.com"})

	a.Email = "b@x.com"
	if _, err := users.Update(ctx, a); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	a.Email = "c@x.com"
	if _, err := users.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if u, _ := users.FindByEmail(ctx, "a@x.com"); u != nil {
		t.Fatalf("old email still indexed")
	}
	if u, _ := users.FindByEmail(ctx, "c@x.com"); u == nil || u.ID != a.ID {
		t.Fatalf("new email not indexed")
	}
}

func TestTasks_OrderingAndCascade(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	owner, _ := store.Users().Create(ctx, &domain.User{Email: "o@x.com"})
	tasks := store.Tasks()

	for _, title := range []string{"one", "two", "three"} {
		if _, err := tasks.Create(ctx, &domain.Task{Title: title, UserID: owner.ID}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	_, _ = tasks.Create(ctx, &domain.Task{Title: "other", UserID: 99})

	all, _ := tasks.List(ctx)
	if len(all) != 4 || all[0].ID != 1 || all[3].ID != 4 {
		t.Fatalf("expected ascending list, got %+v", all)
	}
	own, _ := tasks.ListByOwner(ctx, owner.ID)
	if len(own) != 3 || own[0].ID != 3 || own[2].ID != 1 {
		t.Fatalf("expected descending owner list, got %+v", own)
	}

	if ok, _ := store.Users().Delete(ctx, owner.ID); !ok {
		t.Fatalf("expected owner delete")
	}
	if left, _ := tasks.List(ctx); len(left) != 1 || left[0].UserID != 99 {
		t.Fatalf("expected owner tasks to be removed, got %+v", left)
	}
}

func TestStore_ConcurrentCreates(t *testing.T) {
	tasks := NewStore().Tasks()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tasks.Create(ctx, &domain.Task{Title: "t", UserID: 1})
		}()
	}
	wg.Wait()

	all, _ := tasks.List(ctx)
	if len(all) != 50 || all[49].ID != 50 {
		t.Fatalf("expected 50 unique ids, got %d", len(all))
	}
}
