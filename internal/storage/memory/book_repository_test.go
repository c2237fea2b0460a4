package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/storage/memory"
)

func TestBookRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookRepository()

	if err := repo.Create(ctx, domain.Book{ID: "book-1", StockCount: 3, Active: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, domain.Book{ID: "book-1"}); !errors.Is(err, domain.ErrBookAlreadyExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	book, err := repo.Get(ctx, "book-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !book.InStock {
		t.Fatal("expected in_stock derived from stock count")
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookRepository_AdjustStock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookRepository()
	if err := repo.Create(ctx, domain.Book{ID: "book-1", StockCount: 1, SalesCount: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}

	book, err := repo.AdjustStock(ctx, "book-1", -1, 1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if book.StockCount != 0 || book.InStock || book.SalesCount != 5 {
		t.Fatalf("unexpected book: %+v", book)
	}

	if _, err := repo.AdjustStock(ctx, "book-1", -1, 1); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	stored, _ := repo.Get(ctx, "book-1")
	if stored.StockCount != 0 || stored.SalesCount != 5 {
		t.Fatalf("failed adjustment must not change book: %+v", stored)
	}

	if _, err := repo.AdjustStock(ctx, "missing", 1, 0); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookRepository_AdjustStockConcurrentNeverNegative(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookRepository()
	if err := repo.Create(ctx, domain.Book{ID: "book-1", StockCount: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AdjustStock(ctx, "book-1", -1, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	book, _ := repo.Get(ctx, "book-1")
	if succeeded != 10 || book.StockCount != 0 || book.SalesCount != 10 || book.InStock {
		t.Fatalf("unexpected result: succeeded=%d book=%+v", succeeded, book)
	}
}
