package testsupport

import (
	"testing"

	"turntable/internal/config"
	"turntable/internal/logging"
	"turntable/internal/store"
)

// MustOpenStore opens the session store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
