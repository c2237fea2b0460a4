package domain

import (
	"fmt"
	"time"
)

// Book хранит каталожные данные книги и её складской остаток.
type Book struct {
	ID         string
	Title      string
	Author     string
	PriceMinor int64
	// StockCount — доступный остаток, никогда не бывает отрицательным.
	StockCount int64
	// InStock всегда равен StockCount > 0.
	InStock bool
	// SalesCount — накопленное число проданных экземпляров.
	SalesCount int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate проверяет инварианты книги.
func (b *Book) Validate() []error {
	var errs []error

	if b.ID == "" {
		errs = append(errs, ErrBookIDRequired)
	}
	if b.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if b.StockCount < 0 || b.SalesCount < 0 {
		errs = append(errs, ErrStockNegative)
	}
	if b.InStock != (b.StockCount > 0) {
		errs = append(errs, ErrStockFlagOutOfSync)
	}

	return errs
}

// ApplyStockDelta применяет изменение остатка и продаж и пересчитывает InStock.
// Ни остаток, ни счётчик продаж не могут уйти в минус: в этом случае книга не изменяется,
// поэтому обратная дельта всегда точно откатывает применённую.
func (b *Book) ApplyStockDelta(deltaQuantity, deltaSales int64, now time.Time) error {
	next := b.StockCount + deltaQuantity
	if next < 0 {
		return fmt.Errorf("%w: book %s has %d, requested %d", ErrInsufficientStock, b.ID, b.StockCount, -deltaQuantity)
	}
	nextSales := b.SalesCount + deltaSales
	if nextSales < 0 {
		return fmt.Errorf("%w: book %s has %d sold, requested %d", ErrInsufficientSales, b.ID, b.SalesCount, -deltaSales)
	}

	b.StockCount = next
	b.SalesCount = nextSales
	b.InStock = b.StockCount > 0
	b.UpdatedAt = now.UTC()
	return nil
}
