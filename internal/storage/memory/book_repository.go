package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// BookRepository хранит книги и остатки в памяти.
type BookRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Book
	now   func() time.Time
}

// NewBookRepository создаёт пустой in-memory каталог.
func NewBookRepository() *BookRepository {
	return &BookRepository{
		items: make(map[string]domain.Book),
		now:   time.Now,
	}
}

// Create заводит книгу. InStock пересчитывается из остатка.
func (r *BookRepository) Create(_ context.Context, book domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[book.ID]; exists {
		return domain.ErrBookAlreadyExists
	}
	book.InStock = book.StockCount > 0
	r.items[book.ID] = book
	return nil
}

// Get возвращает книгу или ErrBookNotFound.
func (r *BookRepository) Get(_ context.Context, id string) (domain.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	book, ok := r.items[id]
	if !ok {
		return domain.Book{}, domain.ErrBookNotFound
	}
	return book, nil
}

// AdjustStock применяет дельты под общей блокировкой, поэтому проверка остатка и запись атомарны.
func (r *BookRepository) AdjustStock(_ context.Context, id string, deltaQuantity, deltaSales int64) (domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	book, ok := r.items[id]
	if !ok {
		return domain.Book{}, domain.ErrBookNotFound
	}
	if err := book.ApplyStockDelta(deltaQuantity, deltaSales, r.now()); err != nil {
		return domain.Book{}, err
	}
	r.items[id] = book
	return book, nil
}

// Delete удаляет книгу из каталога. Нужен для сценариев, когда книга исчезает во время операции.
func (r *BookRepository) Delete(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *BookRepository) snapshot() []domain.Book {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Book, 0, len(r.items))
	for _, book := range r.items {
		result = append(result, book)
	}
	return result
}

var _ domain.BookRepository = (*BookRepository)(nil)
