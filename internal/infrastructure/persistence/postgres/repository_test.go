package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/repository"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

func newTestConn(t *testing.T) *DBConnection {
	t.Helper()
	cfg := &config.DatabaseConfig{Driver: "sqlite", Database: "file:" + t.Name() + "?mode=memory&cache=shared"}
	conn, err := NewDBConnection(context.Background(), cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	sqlDB, err := conn.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(conn.Close)
	require.NoError(t, AutoMigrate(context.Background(), conn.DB()))
	return conn
}

func tenantCtx(t *testing.T, id string) context.Context {
	t.Helper()
	tc, err := models.NewTenantContext(id, "Agency "+id, "pro", nil)
	require.NoError(t, err)
	ctx, err := tenancy.Bind(context.Background(), tc)
	require.NoError(t, err)
	return ctx
}

func TestSaleRepository_TenantIsolation(t *testing.T) {
	conn := newTestConn(t)
	repo := NewSaleRepository(NewTenantScope(conn.DB(), logger.NewNoopLogger()), logger.NewNoopLogger())
	ctxA, ctxB := tenantCtx(t, "agency-a"), tenantCtx(t, "agency-b")

	sale := models.NewSale("agency-a", "Juan Perez", "Paquete Bariloche 7 noches", "Bariloche", "ARS", 1000, 300, 450, 20)
	require.NoError(t, repo.Create(ctxA, sale))

	got, err := repo.FindByID(ctxA, "agency-a", sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 1770.0, got.TotalAmount)

	_, err = repo.FindByID(ctxB, "agency-b", sale.ID)
	assert.True(t, errors.IsNotFoundError(err), "tenant B must not see A's sale by id")

	list, total, err := repo.List(ctxB, "agency-b", repository.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	// caller passes the wrong tenant id: storage returns A's row, the ownership check refuses it
	_, err = repo.FindByID(ctxB, "agency-a", sale.ID)
	assert.True(t, errors.IsIsolationViolation(err))

	_, _, err = repo.List(ctxB, "agency-a", repository.SaleFilter{})
	assert.True(t, errors.IsIsolationViolation(err))

	foreign := models.NewSale("agency-b", "Ana", "Cancun", "Cancun", "USD", 10, 0, 0, 0)
	assert.True(t, errors.IsIsolationViolation(repo.Create(ctxA, foreign)))
}

func TestSaleRepository_List(t *testing.T) {
	conn := newTestConn(t)
	repo := NewSaleRepository(NewTenantScope(conn.DB(), logger.NewNoopLogger()), logger.NewNoopLogger())
	ctx := tenantCtx(t, "agency-a")

	base := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	for i, dest := range []string{"Bariloche", "Cancun", "Mendoza", "Bariloche"} {
		s := models.NewSale("agency-a", "Cliente", "Paquete "+dest, dest, "ARS", 100, 0, 0, 0)
		s.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if dest == "Mendoza" {
			s.Status = models.SaleStatusConfirmed
		}
		require.NoError(t, repo.Create(ctx, s))
	}

	all, total, err := repo.List(ctx, "agency-a", repository.SaleFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 2)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	found, total, err := repo.List(ctx, "agency-a", repository.SaleFilter{Search: "BARILOCHE"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, found, 2)

	confirmed, _, err := repo.List(ctx, "agency-a", repository.SaleFilter{Status: models.SaleStatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "Mendoza", confirmed[0].Destination)

	wildcard, _, err := repo.List(ctx, "agency-a", repository.SaleFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, wildcard)
}

func TestFinancialRepository_FindAvailableProduct(t *testing.T) {
	conn := newTestConn(t)
	scope := NewTenantScope(conn.DB(), logger.NewNoopLogger())
	repo := NewFinancialRepository(scope, logger.NewNoopLogger())
	ctxA, ctxB := tenantCtx(t, "agency-a"), tenantCtx(t, "agency-b")

	products := []struct {
		ctx context.Context
		p   *models.Product
	}{
		{ctxA, &models.Product{ID: "a-bari", TenantID: "agency-a", Description: "Bariloche 7 noches", Destination: "Bariloche", Currency: "USD", BasePrice: 1500, CountryTax: 450, IncomeWithholding: 675, TotalPrice: 2625, Available: true}},
		{ctxA, &models.Product{ID: "a-cancun", TenantID: "agency-a", Description: "Cancun all inclusive", Destination: "Cancun", Currency: "USD", BasePrice: 2000, TotalPrice: 2000, Available: false}},
		{ctxB, &models.Product{ID: "b-bari", TenantID: "agency-b", Description: "Bariloche invierno", Destination: "Bariloche", Currency: "ARS", BasePrice: 900000, TotalPrice: 900000, Available: true}},
	}
	for _, it := range products {
		require.NoError(t, repo.SaveProduct(it.ctx, it.p))
	}
	// gorm omits false for a column with a default, so clear it explicitly
	require.NoError(t, conn.DB().Model(&models.Product{}).Where("id = ?", "a-cancun").Update("available", false).Error)

	rec, err := repo.FindAvailableProduct(ctxA, "agency-a", []string{"viaje", "Bariloche"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a-bari", rec.ProductID)
	assert.Equal(t, 2625.0, rec.TotalPrice)

	rec, err = repo.FindAvailableProduct(ctxB, "agency-b", []string{"bariloche"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "b-bari", rec.ProductID)

	rec, err = repo.FindAvailableProduct(ctxA, "agency-a", []string{"cancun"})
	require.NoError(t, err)
	assert.Nil(t, rec, "unavailable products are not pricing sources")

	rec, err = repo.FindAvailableProduct(ctxA, "agency-a", nil)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = repo.FindAvailableProduct(ctxA, "agency-b", []string{"bariloche"})
	assert.True(t, errors.IsIsolationViolation(err))

	assert.True(t, errors.IsIsolationViolation(repo.SaveProduct(ctxA, &models.Product{ID: "x", TenantID: "agency-b"})))
}

func TestTenantScope_RequiresValidatedTenant(t *testing.T) {
	conn := newTestConn(t)
	scope := NewTenantScope(conn.DB(), logger.NewNoopLogger())

	called := false
	err := scope.Run(context.Background(), func(*gorm.DB) error {
		called = true
		return nil
	})
	assert.True(t, errors.IsIsolationViolation(err))
	assert.False(t, called)

	require.NoError(t, scope.Run(tenantCtx(t, "agency-a"), func(*gorm.DB) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestDBConnection_HealthCheck(t *testing.T) {
	conn := newTestConn(t)
	assert.Nil(t, conn.Pool())

	info, err := conn.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", info["status"])
	assert.Equal(t, "sqlite", info["driver"])
}

func TestMapDBErr(t *testing.T) {
	assert.Nil(t, mapDBErr(nil, "sale", "1"))
	assert.True(t, errors.IsNotFoundError(mapDBErr(gorm.ErrRecordNotFound, "sale", "1")))
	assert.True(t, errors.IsIsolationViolation(mapDBErr(&pgconn.PgError{Code: "42501"}, "sale", "1")))

	appErr, ok := errors.AsAppError(mapDBErr(&pgconn.PgError{Code: "23505"}, "sale", "1"))
	require.True(t, ok)
	assert.Equal(t, 400, appErr.HTTPStatus())

	assert.True(t, errors.IsTransientError(mapDBErr(context.DeadlineExceeded, "sale", "1")))
}
