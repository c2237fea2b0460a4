package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

func TestBookApplyStockDelta(t *testing.T) {
	cases := []struct {
		name       string
		stock      int64
		sales      int64
		deltaQty   int64
		deltaSales int64
		wantStock  int64
		wantSales  int64
		wantErr    error
	}{
		{name: "restore", stock: 0, sales: 5, deltaQty: 2, deltaSales: -2, wantStock: 2, wantSales: 3},
		{name: "reserve", stock: 3, sales: 0, deltaQty: -3, deltaSales: 3, wantStock: 0, wantSales: 3},
		{name: "insufficient", stock: 1, sales: 0, deltaQty: -2, deltaSales: 2, wantStock: 1, wantSales: 0, wantErr: domain.ErrInsufficientStock},
		{name: "sales below zero", stock: 1, sales: 1, deltaQty: 4, deltaSales: -4, wantStock: 1, wantSales: 1, wantErr: domain.ErrInsufficientSales},
		{name: "sales to zero", stock: 1, sales: 4, deltaQty: 4, deltaSales: -4, wantStock: 5, wantSales: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book := domain.Book{ID: "book-1", StockCount: tc.stock, InStock: tc.stock > 0, SalesCount: tc.sales}
			err := book.ApplyStockDelta(tc.deltaQty, tc.deltaSales, time.Now())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if book.StockCount != tc.wantStock || book.SalesCount != tc.wantSales {
				t.Fatalf("unexpected counters: stock=%d sales=%d", book.StockCount, book.SalesCount)
			}
			if book.InStock != (book.StockCount > 0) {
				t.Fatalf("in_stock flag out of sync: %+v", book)
			}
			if errs := book.Validate(); len(errs) != 0 {
				t.Fatalf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestBookValidate(t *testing.T) {
	book := domain.Book{ID: "book-1", StockCount: 3, InStock: false}
	errs := book.Validate()
	if len(errs) != 1 || !errors.Is(errs[0], domain.ErrStockFlagOutOfSync) {
		t.Fatalf("expected stock flag error, got %v", errs)
	}
}
