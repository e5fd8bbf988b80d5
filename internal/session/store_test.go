package session

import (
	"sync"
	"testing"
	"time"
)

func TestStore(t *testing.T) {
	t.Run("New And Get", func(t *testing.T) {
		s := NewStore()
		sess := s.New()

		if sess.ID == "" || sess.Record == nil || sess.Cache == nil {
			t.Fatalf("expected initialized session, got %+v", sess)
		}
		if sess.Record.State() != Unauthenticated {
			t.Errorf("expected unauthenticated, got %v", sess.Record.State())
		}

		got, ok := s.Get(sess.ID)
		if !ok || got != sess {
			t.Error("expected to find the same session")
		}
		if _, ok := s.Get("missing"); ok {
			t.Error("expected missing session")
		}
	})

	t.Run("Sessions Are Isolated", func(t *testing.T) {
		s := NewStore()
		a, b := s.New(), s.New()

		if a.ID == b.ID {
			t.Error("expected distinct IDs")
		}
		if a.Record == b.Record || a.Cache == b.Cache {
			t.Error("expected sessions not to share state")
		}

		a.Record.AccessToken = "T1"
		if b.Record.HasToken() {
			t.Error("expected token change to stay in one session")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewStore()
		sess := s.New()

		if !s.Delete(sess.ID) {
			t.Error("expected delete to succeed")
		}
		if s.Delete(sess.ID) {
			t.Error("expected second delete to report false")
		}
		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d", s.Len())
		}
	})

	t.Run("Prune", func(t *testing.T) {
		now := time.Date(2024, 4, 19, 12, 0, 0, 0, time.UTC)
		s := NewStore().WithClock(func() time.Time { return now })

		old := s.New()
		old.Record.AccessToken = "T1"
		old.Record.RefreshToken = "R1"

		now = now.Add(30 * time.Minute)
		recent := s.New()

		if n := s.Prune(time.Hour); n != 0 {
			t.Errorf("expected nothing pruned yet, got %d", n)
		}

		now = now.Add(30 * time.Minute)
		if n := s.Prune(time.Hour); n != 1 {
			t.Errorf("expected 1 pruned session, got %d", n)
		}
		if _, ok := s.Get(old.ID); ok {
			t.Error("expected expired session to be gone")
		}
		if _, ok := s.Get(recent.ID); !ok {
			t.Error("expected recent session to remain")
		}
		if s.Len() != 1 {
			t.Errorf("expected 1 session, got %d", s.Len())
		}
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		s := NewStore()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sess := s.New()
				s.Get(sess.ID)
			}()
		}
		wg.Wait()

		if s.Len() != 50 {
			t.Errorf("expected 50 sessions, got %d", s.Len())
		}
	})
}

func TestTokenRecord(t *testing.T) {
	issued := time.Date(2024, 4, 19, 12, 0, 0, 0, time.UTC)
	rec := &TokenRecord{AccessToken: "T1", IssuedAt: issued, Lifetime: time.Hour}

	if got := rec.ExpiresAt(); !got.Equal(issued.Add(time.Hour)) {
		t.Errorf("unexpected ExpiresAt %v", got)
	}
	if got := rec.Remaining(issued.Add(10 * time.Minute)); got != 50*time.Minute {
		t.Errorf("expected 50m remaining, got %v", got)
	}
	if rec.Due(issued.Add(58*time.Minute), time.Minute) {
		t.Error("expected not due two minutes before expiry")
	}
	if !rec.Due(issued.Add(59*time.Minute), time.Minute) {
		t.Error("expected due one minute before expiry")
	}

	for state, want := range map[State]string{Unauthenticated: "unauthenticated", Authenticated: "authenticated", Stale: "stale"} {
		if state.String() != want {
			t.Errorf("expected %s, got %s", want, state.String())
		}
	}
}

func TestSessionContext(t *testing.T) {
	sess := NewSession()
	ctx := NewContext(t.Context(), sess)

	got, ok := FromContext(ctx)
	if !ok || got != sess {
		t.Error("expected session from context")
	}
	if _, ok := FromContext(t.Context()); ok {
		t.Error("expected no session in bare context")
	}
}

func TestSessionFlash(t *testing.T) {
	sess := NewSession()
	sess.SetFlash("Token refreshed")

	if got := sess.Flash(); got != "Token refreshed" {
		t.Errorf("expected flash, got %q", got)
	}
	if got := sess.Flash(); got != "" {
		t.Errorf("expected flash to be consumed, got %q", got)
	}
}
