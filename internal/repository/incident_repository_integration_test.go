//go:build integration

package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// TestIncidentOpenEnforcesAtMostOneOngoing runs the at-most-one-ongoing-
// incident invariant (§8) against a real Postgres container instead of
// sqlite, since the invariant's Postgres enforcement path is a partial
// unique index that sqlite emulates but MySQL cannot express at all — this
// is the one place a property only a real engine exhibits is worth the
// container cost. Run with `go test -tags=integration ./internal/repository/...`.
func TestIncidentOpenEnforcesAtMostOneOngoing(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pulseguard"),
		tcpostgres.WithUsername("pulseguard"),
		tcpostgres.WithPassword("pulseguard"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Exercise the raw driver once to confirm connectivity before handing
	// the DSN to gorm, the same two-layer access pattern production code
	// uses (lib/pq for low-level checks, gorm/pgx for the repository layer).
	rawDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, rawDB.PingContext(ctx))
	require.NoError(t, rawDB.Close())

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Monitor{}, &models.Incident{}))
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_incidents_one_ongoing
		ON incidents (monitor_id) WHERE status = 'ongoing'`).Error)

	monitor := &models.Monitor{Name: "race-target", Protocol: models.ProtocolHTTP, Target: "https://example.com", IsActive: true}
	require.NoError(t, db.Create(monitor).Error)

	repo := NewIncidentRepository(db)

	const attempts = 20
	var wg sync.WaitGroup
	successes := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			incident := &models.Incident{
				MonitorID: monitor.ID,
				StartTime: time.Now(),
				Status:    models.IncidentStatusOngoing,
				Severity:  models.IncidentSeverityHigh,
			}
			successes[i] = repo.Open(ctx, incident) == nil
		}(i)
	}
	wg.Wait()

	opened := 0
	for _, ok := range successes {
		if ok {
			opened++
		}
	}
	require.Equal(t, 1, opened, "exactly one concurrent Open should win the race")

	var count int64
	require.NoError(t, db.Model(&models.Incident{}).
		Where("monitor_id = ? AND status = ?", monitor.ID, models.IncidentStatusOngoing).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}
