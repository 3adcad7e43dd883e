//go:build integration

package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bevera/internal/cart"
	"bevera/internal/config"
	"bevera/internal/database"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresStore(t *testing.T) *repositories.Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "bevera",
			"POSTGRES_PASSWORD": "bevera",
			"POSTGRES_DB":       "bevera",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.Open(config.DatabaseConfig{
		Driver: "postgres",
		DSN:    fmt.Sprintf("postgres://bevera:bevera@%s:%s/bevera?sslmode=disable", host, port.Port()),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repositories.NewStore(db)
}

// Ten clients race for five units: exactly five orders go through and the
// ledger still matches the stock column.
func TestCheckout_ConcurrentLastUnits(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	carts := cart.NewMemoryStore(time.Hour)
	orders := services.NewOrderService(store, carts, nil, nil)
	p := createProduct(t, store, createCategory(t, store).ID, "Cola", "1.80", 5)

	const buyers = 10
	clients := make([]*models.User, buyers)
	for i := range clients {
		clients[i] = createUser(t, store, models.RoleClient)
		require.NoError(t, carts.Save(ctx, fmt.Sprintf("s%d", i), cart.Cart{p.ID: 1}))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		shortage int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := orders.Checkout(ctx, clients[i].ID, fmt.Sprintf("s%d", i), cashRequest())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, services.ErrInsufficientStock):
				shortage++
			default:
				t.Errorf("unexpected checkout error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, 5, shortage)
	assert.Equal(t, 0, stockOf(t, store, p.ID))

	inventory := services.NewInventoryService(store, 10, nil)
	discrepancies, err := inventory.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, discrepancies)
}
