package services_test

import (
	"context"
	"strings"
	"testing"

	"bevera/internal/cart"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/internal/services"
	"bevera/pkg/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = services.Actor{UserID: "admin-1", Role: models.RoleAdmin}

func TestProductService_CreateWritesOpeningStock(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewProductService(store, storage.NewMemStorage(), 10, nil)
	cat := createCategory(t, store)

	p, err := svc.Create(ctx, services.ProductInput{
		Name:         "  Ginger beer ",
		Price:        decimal.RequireFromString("2.499"),
		InitialStock: 12,
		IsActive:     true,
		CategoryID:   cat.ID,
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Ginger beer", p.Name)
	assert.True(t, decimal.RequireFromString("2.50").Equal(p.Price))
	assert.Equal(t, 12, p.StockQty)

	sum, err := store.Inventory.SumByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, sum)
}

func TestProductService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewProductService(store, storage.NewMemStorage(), 10, nil)

	pct := decimal.NewFromInt(120)
	_, err := svc.Create(ctx, services.ProductInput{
		Price:           decimal.NewFromInt(-1),
		DiscountPercent: &pct,
		InitialStock:    -1,
		CategoryID:      77,
	}, admin)
	require.ErrorIs(t, err, services.ErrValidation)

	fields := err.(services.ValidationErrors).Fields()
	for _, f := range []string{"name", "price", "discount_percent", "initial_stock", "category_id"} {
		assert.Contains(t, fields, f)
	}
}

func TestProductService_UpdateKeepsStock(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewProductService(store, storage.NewMemStorage(), 10, nil)
	cat := createCategory(t, store)
	p := createProduct(t, store, cat.ID, "Cola", "1.80", 7)

	got, err := svc.Update(ctx, p.ID, services.ProductInput{
		Name:         "Cola Zero",
		Price:        decimal.RequireFromString("1.90"),
		InitialStock: 999,
		CategoryID:   cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", got.Name)
	assert.False(t, got.IsActive)
	assert.Equal(t, 7, got.StockQty)

	_, err = svc.GetPublic(ctx, p.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProductService_DeleteBlockedByHistory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewProductService(store, storage.NewMemStorage(), 10, nil)
	carts := cart.NewMemoryStore(0)
	orders := services.NewOrderService(store, carts, nil, nil)

	cat := createCategory(t, store)
	sold := createProduct(t, store, cat.ID, "Sold", "1.00", 5)
	stocked := createProduct(t, store, cat.ID, "Stocked", "1.00", 5)
	unsold := createProduct(t, store, cat.ID, "Unsold", "1.00", 0)
	client := createUser(t, store, models.RoleClient)
	require.NoError(t, carts.Save(ctx, "s", cart.Cart{sold.ID: 1}))
	_, err := orders.Checkout(ctx, client.ID, "s", cashRequest())
	require.NoError(t, err)

	err = svc.Delete(ctx, sold.ID)
	assert.ErrorIs(t, err, services.ErrConstraintViolation)

	// Ledger rows must keep their product.
	err = svc.Delete(ctx, stocked.ID)
	assert.ErrorIs(t, err, services.ErrConstraintViolation)
	sum, err := store.Inventory.SumByProduct(ctx, stocked.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)
	assert.Equal(t, 5, stockOf(t, store, stocked.ID))

	require.NoError(t, svc.Delete(ctx, unsold.ID))
	_, err = svc.Get(ctx, unsold.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProductService_ListStockFiltersAndSort(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewProductService(store, storage.NewMemStorage(), 4, nil)
	cat := createCategory(t, store)
	createProduct(t, store, cat.ID, "Beer", "3.00", 0)
	createProduct(t, store, cat.ID, "Cola", "1.50", 3)
	createProduct(t, store, cat.ID, "Soda", "1.00", 8)
	createProduct(t, store, cat.ID, "Tea", "2.00", 20)

	names := func(page *repositories.Page[models.Product]) []string {
		out := make([]string, len(page.Items))
		for i, p := range page.Items {
			out[i] = p.Name
		}
		return out
	}
	intp := func(n int) *int { return &n }

	page, err := svc.List(ctx, repositories.ProductFilter{Stock: repositories.StockFilterLow})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cola"}, names(page))

	page, err = svc.List(ctx, repositories.ProductFilter{Stock: repositories.StockFilterOut})
	require.NoError(t, err)
	assert.Equal(t, []string{"Beer"}, names(page))

	page, err = svc.List(ctx, repositories.ProductFilter{MinQty: intp(3), MaxQty: intp(8), Sort: "stock_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Soda", "Cola"}, names(page))

	page, err = svc.List(ctx, repositories.ProductFilter{Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Soda", "Cola", "Tea", "Beer"}, names(page))

	page, err = svc.List(ctx, repositories.ProductFilter{Sort: "name_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tea", "Soda", "Cola", "Beer"}, names(page))

	_, err = svc.List(ctx, repositories.ProductFilter{Stock: "some", Sort: "random", MinQty: intp(5), MaxQty: intp(1)})
	var verrs services.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Fields(), 3)
}

func TestProductService_Search(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewProductService(store, storage.NewMemStorage(), 10, nil)
	cat := createCategory(t, store)
	createProduct(t, store, cat.ID, "Apple juice", "2.00", 5)
	createProduct(t, store, cat.ID, "Orange juice", "2.00", 5)
	hidden := createProduct(t, store, cat.ID, "Grape juice", "2.00", 5)
	hidden.IsActive = false
	require.NoError(t, store.Products.Update(ctx, hidden))

	page, err := svc.Search(ctx, "juice", repositories.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)

	page, err = svc.Search(ctx, "j", repositories.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.Page)
}

func TestProductService_AddImage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	files := storage.NewMemStorage()
	svc := services.NewProductService(store, files, 10, nil)
	p := createProduct(t, store, createCategory(t, store).ID, "Cola", "1.80", 1)

	first, err := svc.AddImage(ctx, p.ID, "front.PNG", strings.NewReader("png"), false)
	require.NoError(t, err)
	assert.True(t, first.IsMain)
	assert.True(t, strings.HasPrefix(first.ImagePath, "/uploads/images/"))

	second, err := svc.AddImage(ctx, p.ID, "back.jpg", strings.NewReader("jpg"), true)
	require.NoError(t, err)
	assert.True(t, second.IsMain)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ImagePath, got.MainImagePath())

	_, err = svc.AddImage(ctx, p.ID, "script.exe", strings.NewReader("x"), false)
	assert.ErrorIs(t, err, services.ErrValidation)

	rc, err := files.Open(strings.TrimPrefix(first.ImagePath, services.ImagePrefix))
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}
