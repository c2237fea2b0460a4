package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

const bookColumns = `id, title, author, price_minor, stock_count, in_stock, sales_count, active, created_at, updated_at`

// BookRepository хранит каталог и остатки в PostgreSQL.
type BookRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewBookRepository создаёт PostgreSQL-реализацию BookRepository.
func NewBookRepository(store *Store) *BookRepository {
	return &BookRepository{db: store.DB(), now: time.Now}
}

func (r *BookRepository) Create(ctx context.Context, book domain.Book) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	book.InStock = book.StockCount > 0
	now := r.now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	if book.UpdatedAt.IsZero() {
		book.UpdatedAt = book.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		book.ID, book.Title, book.Author, book.PriceMinor, book.StockCount, book.InStock,
		book.SalesCount, book.Active, book.CreatedAt.UTC(), book.UpdatedAt.UTC(),
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.ErrBookAlreadyExists
		case pgCheckViolation:
			return fmt.Errorf("%w: %v", domain.ErrStockNegative, err)
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id string) (domain.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	book, err := scanBook(r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Book{}, domain.ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("select book: %w", err)
	}
	return book, nil
}

// AdjustStock применяет дельты одним UPDATE: проверка счётчиков и запись выполняются атомарно
// на уровне строки, параллельные списания не уводят остаток и продажи в минус.
func (r *BookRepository) AdjustStock(ctx context.Context, id string, deltaQuantity, deltaSales int64) (domain.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	book, err := scanBook(r.db.QueryRowContext(ctx, `
		UPDATE books
		SET stock_count = stock_count + $2,
		    in_stock = (stock_count + $2) > 0,
		    sales_count = sales_count + $3,
		    updated_at = $4
		WHERE id = $1
		  AND stock_count + $2 >= 0
		  AND sales_count + $3 >= 0
		RETURNING `+bookColumns,
		id, deltaQuantity, deltaSales, r.now().UTC(),
	))
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, fmt.Errorf("adjust stock: %w", err)
	}

	// Строка не обновилась: книги нет либо остаток или продажи ушли бы в минус.
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return domain.Book{}, getErr
	}
	if current.StockCount+deltaQuantity >= 0 {
		return domain.Book{}, fmt.Errorf("%w: book %s has %d sold, requested %d",
			domain.ErrInsufficientSales, id, current.SalesCount, -deltaSales)
	}
	return domain.Book{}, fmt.Errorf("%w: book %s has %d, requested %d",
		domain.ErrInsufficientStock, id, current.StockCount, -deltaQuantity)
}

func scanBook(row rowScanner) (domain.Book, error) {
	var book domain.Book
	if err := row.Scan(
		&book.ID, &book.Title, &book.Author, &book.PriceMinor, &book.StockCount, &book.InStock,
		&book.SalesCount, &book.Active, &book.CreatedAt, &book.UpdatedAt,
	); err != nil {
		return domain.Book{}, err
	}
	book.CreatedAt = book.CreatedAt.UTC()
	book.UpdatedAt = book.UpdatedAt.UTC()
	return book, nil
}

var _ domain.BookRepository = (*BookRepository)(nil)
