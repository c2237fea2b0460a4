package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

func TestBookRepository_PostgresAdjustStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewBookRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.Book{ID: "book-1", Title: "Dune", PriceMinor: 999, StockCount: 2, Active: true}))
	require.ErrorIs(t, repo.Create(ctx, domain.Book{ID: "book-1", Title: "Dune"}), domain.ErrBookAlreadyExists)

	book, err := repo.AdjustStock(ctx, "book-1", -2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), book.StockCount)
	require.False(t, book.InStock)
	require.Equal(t, int64(2), book.SalesCount)

	_, err = repo.AdjustStock(ctx, "book-1", -1, 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	unchanged, err := repo.Get(ctx, "book-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), unchanged.StockCount)
	require.Equal(t, int64(2), unchanged.SalesCount)

	_, err = repo.AdjustStock(ctx, "book-1", 1, -5)
	require.ErrorIs(t, err, domain.ErrInsufficientSales)

	unchanged, err = repo.Get(ctx, "book-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), unchanged.StockCount)
	require.Equal(t, int64(2), unchanged.SalesCount)

	book, err = repo.AdjustStock(ctx, "book-1", 1, -2)
	require.NoError(t, err)
	require.True(t, book.InStock)
	require.Equal(t, int64(0), book.SalesCount)

	_, err = repo.AdjustStock(ctx, "missing", 1, 0)
	require.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestBookRepository_PostgresConcurrentReservations(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewBookRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.Book{ID: "book-hot", Title: "Hot", PriceMinor: 100, StockCount: 5, Active: true}))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AdjustStock(ctx, "book-hot", -1, 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, ok)
	book, err := repo.Get(ctx, "book-hot")
	require.NoError(t, err)
	require.Equal(t, int64(0), book.StockCount)
	require.Equal(t, int64(5), book.SalesCount)
}
