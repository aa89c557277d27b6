package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/triage/internal/store"
	"github.com/crimson-sun/triage/internal/store/storetest"
)

// Set TRIAGE_TEST_POSTGRES_URL to a disposable database to run these tests.
func testURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TRIAGE_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TRIAGE_TEST_POSTGRES_URL not set")
	}
	return url
}

func TestConformance(t *testing.T) {
	url := testURL(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := Open(ctx, url)
		require.NoError(t, err)
		_, err = s.DB().ExecContext(ctx, `TRUNCATE match_results`)
		require.NoError(t, err)
		return s
	})
}
