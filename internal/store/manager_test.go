package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/models"
)

func TestManager_OpenSharesHandle(t *testing.T) {
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	defer m.Close()

	var wg sync.WaitGroup
	stores := make([]*Store, 16)
	errs := make([]error, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i], errs[i] = m.Open(context.Background(), testScope)
		}(i)
	}
	wg.Wait()

	for i := range stores {
		if errs[i] != nil {
			t.Fatalf("Open #%d: %v", i, errs[i])
		}
		if stores[i] != stores[0] {
			t.Errorf("Open #%d returned a different handle", i)
		}
	}
	if _, err := os.Stat(filepath.Join(testScope.Dir(m.Root()), DBFile)); err != nil {
		t.Errorf("database file: %v", err)
	}
}

func TestManager_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	defer m.Close()

	dm := testScope
	dm.ModeVariant = models.VariantDeathmatch

	std, err := m.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	other, err := m.Open(ctx, dm)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mustUpsert(t, std, matchJSON(t, "M1", time.Now(), ann))

	if got, _ := other.LatestForPlayer(ctx, "ann#1"); got != nil {
		t.Errorf("deathmatch scope sees %s", got.MatchID)
	}
	if got, _ := other.Match(ctx, "M1"); got != nil {
		t.Error("deathmatch scope sees M1")
	}
}

func TestManager_Reopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first := NewManager(ManagerConfig{Root: root, Logger: zap.NewNop()})
	s, err := first.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustUpsert(t, s, matchJSON(t, "M1", time.Now(), ann))
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := NewManager(ManagerConfig{Root: root, Logger: zap.NewNop()})
	defer second.Close()
	s, err = second.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, err := s.LatestForPlayer(ctx, "ann#1"); err != nil || got == nil || got.MatchID != "M1" {
		t.Errorf("after reopen latest = %+v, %v", got, err)
	}
}

func TestManager_Prune(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	defer m.Close()

	s, err := m.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustUpsert(t, s, matchJSON(t, "M1", time.Now(), ann))

	removed, err := m.Prune(testScope)
	if err != nil || !removed {
		t.Fatalf("Prune = %v, %v", removed, err)
	}
	if _, err := os.Stat(testScope.Dir(m.Root())); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("scope dir still exists: %v", err)
	}

	removed, err = m.Prune(testScope)
	if err != nil || removed {
		t.Errorf("second Prune = %v, %v", removed, err)
	}

	s, err = m.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open after prune: %v", err)
	}
	if got, _ := s.Match(ctx, "M1"); got != nil {
		t.Error("pruned match survived")
	}
}

func TestManager_RejectsInvalidScope(t *testing.T) {
	m := NewManager(ManagerConfig{Root: t.TempDir()})
	defer m.Close()

	bad := testScope
	bad.Region = "moon"
	if _, err := m.Open(context.Background(), bad); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Open err = %v, want ErrInvalidArgument", err)
	}
	if _, err := m.Prune(bad); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Prune err = %v, want ErrInvalidArgument", err)
	}
}

func TestManager_PruneWhileInUse(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	defer m.Close()

	s, err := m.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustUpsert(t, s, matchJSON(t, "M1", time.Now(), ann))

	if _, err := m.Prune(testScope); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	// The handle taken before the prune keeps working against a fresh store.
	if got, err := s.Match(ctx, "M1"); err != nil || got != nil {
		t.Errorf("Match after prune = %+v, %v", got, err)
	}
	mustUpsert(t, s, matchJSON(t, "M2", time.Now(), ann))

	fresh, err := m.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fresh == s {
		t.Error("Open returned the pruned handle")
	}
	if got, err := fresh.LatestForPlayer(ctx, "ann#1"); err != nil || got == nil || got.MatchID != "M2" {
		t.Errorf("latest = %+v, %v, want M2", got, err)
	}
}

func TestManager_PruneConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	defer m.Close()

	s, err := m.Open(ctx, testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Upsert(ctx, matchJSON(t, fmt.Sprintf("M%d", i), time.Now(), ann)); err != nil {
				errs <- err
			}
		}(i)
		if i%10 == 5 {
			if _, err := m.Prune(testScope); err != nil {
				t.Fatalf("Prune: %v", err)
			}
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Upsert during prune: %v", err)
	}
}

func TestManager_OpenDoesNotWaitOnOtherScopes(t *testing.T) {
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	defer m.Close()

	dm := testScope
	dm.ModeVariant = models.VariantDeathmatch

	// Hold the open lock of one scope as a slow first open would.
	_, l, err := m.lookup(testScope.Key())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	l.Lock()
	defer l.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := m.Open(context.Background(), dm)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Open of another scope blocked")
	}
}

func TestManager_OpenAfterClose(t *testing.T) {
	m := NewManager(ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	s, err := m.Open(context.Background(), testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Open(context.Background(), testScope); !errors.Is(err, ErrClosed) {
		t.Errorf("Open err = %v, want ErrClosed", err)
	}
	if _, err := s.Match(context.Background(), "M1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Match err = %v, want ErrClosed", err)
	}
}
