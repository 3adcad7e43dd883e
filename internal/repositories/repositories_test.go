package repositories_test

import (
	"context"
	"testing"
	"time"

	"bevera/internal/config"
	"bevera/internal/database"
	"bevera/internal/models"
	"bevera/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return repositories.NewStore(db)
}

func seedProduct(t *testing.T, s *repositories.Store, name string, stock, threshold int) *models.Product {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Name: "Cat " + name, IsActive: true}
	require.NoError(t, s.Categories.Create(ctx, cat))
	p := &models.Product{
		Name:              name,
		Price:             decimal.RequireFromString("2.50"),
		StockQty:          stock,
		LowStockThreshold: threshold,
		IsActive:          true,
		CategoryID:        cat.ID,
	}
	require.NoError(t, s.Products.Create(ctx, p))
	return p
}

func TestPageRequest_Normalize(t *testing.T) {
	assert.Equal(t, repositories.PageRequest{Page: 1, PageSize: 10}, repositories.PageRequest{}.Normalize())
	assert.Equal(t, repositories.PageRequest{Page: 3, PageSize: 100}, repositories.PageRequest{Page: 3, PageSize: 500}.Normalize())
}

func TestProductRepository_DecrementStockIsConditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Water", 3, 0)

	ok, err := s.Products.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Products.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one unit left")

	got, err := s.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQty)
}

func TestProductRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Products.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	err = s.Products.IncrementStock(context.Background(), 999, 1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestProductRepository_LowStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "Empty", 0, 5)
	seedProduct(t, s, "Low", 4, 5)
	seedProduct(t, s, "Fallback", 9, 0)
	seedProduct(t, s, "Plenty", 50, 5)

	low, err := s.Products.LowStock(ctx, 10)
	require.NoError(t, err)
	names := []string{}
	for _, p := range low {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Low", "Fallback"}, names)

	n, err := s.Products.CountLowStock(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestProductRepository_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedProduct(t, s, "Apple juice", 5, 0)
	seedProduct(t, s, "Orange juice", 0, 0)
	seedProduct(t, s, "Tonic", 5, 0)

	page, err := s.Products.List(ctx, repositories.ProductFilter{Query: "juice", OnlyAvailable: true, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)

	page, err = s.Products.List(ctx, repositories.ProductFilter{PageRequest: repositories.PageRequest{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)
}

func TestCategoryRepository_UpdateClearsParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := &models.Category{Name: "Root", IsActive: true}
	require.NoError(t, s.Categories.Create(ctx, root))
	child := &models.Category{Name: "Child", IsActive: true, ParentCategoryID: &root.ID}
	require.NoError(t, s.Categories.Create(ctx, child))

	n, err := s.Categories.CountChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	child.ParentCategoryID = nil
	require.NoError(t, s.Categories.Update(ctx, child))

	got, err := s.Categories.GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRoot())

	tree, err := s.Categories.Tree(ctx, true)
	require.NoError(t, err)
	assert.Len(t, tree, 2)
}

func TestOrderRepository_StatusAndRevenue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := &models.User{ID: uuid.NewString(), Email: "c@example.com", Password: "x", Role: models.RoleClient}
	require.NoError(t, s.Users.Create(ctx, user))

	now := time.Now().UTC()
	paid := &models.Order{ClientID: user.ID, Status: models.OrderStatusSubmitted, PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: models.PaymentMethodCard, Total: decimal.RequireFromString("10.50"), FullName: "C", Email: user.Email, ChangedAt: now}
	unpaid := &models.Order{ClientID: user.ID, Status: models.OrderStatusSubmitted, PaymentStatus: models.PaymentStatusUnpaid,
		PaymentMethod: models.PaymentMethodCash, Total: decimal.RequireFromString("4.00"), FullName: "C", Email: user.Email, ChangedAt: now}
	require.NoError(t, s.Orders.Create(ctx, paid))
	require.NoError(t, s.Orders.Create(ctx, unpaid))

	revenue, err := s.Orders.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.50").Equal(revenue), revenue.String())

	ok, err := s.Orders.UpdateStatus(ctx, paid.ID, models.OrderStatusSubmitted, models.OrderStatusPreparing, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Orders.UpdateStatus(ctx, paid.ID, models.OrderStatusSubmitted, models.OrderStatusPreparing, now)
	require.NoError(t, err)
	assert.False(t, ok, "stale source status")

	ok, err = s.Orders.MarkPaid(ctx, unpaid.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Orders.MarkPaid(ctx, unpaid.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	page, err := s.Orders.List(ctx, repositories.OrderFilter{Query: "c@example"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)

	page, err = s.Orders.List(ctx, repositories.OrderFilter{Status: models.OrderStatusPreparing})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)

	_, err = s.Orders.GetForClient(ctx, paid.ID, "someone-else")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestInventoryRepository_Sums(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Soda", 0, 0)

	require.NoError(t, s.Inventory.Append(ctx, &models.InventoryMovement{ProductID: p.ID, QuantityDelta: 10, Type: models.MovementRestock, CreatedByUserID: "w"}))
	require.NoError(t, s.Inventory.RecordSale(ctx, p.ID, 3, 42, "c"))
	assert.Error(t, s.Inventory.RecordSale(ctx, p.ID, 3, 0, "c"), "sales must be linked to an order")

	sum, err := s.Inventory.SumByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, sum)

	sums, err := s.Inventory.Sums(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{p.ID: 7}, sums)

	page, err := s.Inventory.ListByProduct(ctx, p.ID, repositories.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, models.MovementOut, page.Items[0].Type)
	require.NotNil(t, page.Items[0].OrderID)
	assert.Equal(t, uint(42), *page.Items[0].OrderID)
}

func TestFavoriteRepository_Toggle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Cider", 1, 0)

	on, err := s.Favorites.Toggle(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.True(t, on)

	ids, err := s.Favorites.ProductIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, ids)

	on, err = s.Favorites.Toggle(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "Beer", 5, 0)

	err := s.Transaction(ctx, func(tx *repositories.Store) error {
		ok, err := tx.Products.DecrementStock(ctx, p.ID, 5)
		require.NoError(t, err)
		require.True(t, ok)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := s.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQty)
}
