package domain

// PageRequest — запрос страницы списка, страницы нумеруются с 1.
type PageRequest struct {
	Page int
	Size int
}

// PageLimits задаёт размер страницы по умолчанию и верхнюю границу.
type PageLimits struct {
	Default int
	Max     int
}

var (
	// UserPageLimits — ограничения для списков покупателя.
	UserPageLimits = PageLimits{Default: 10, Max: 50}
	// AdminPageLimits — ограничения для списков админки.
	AdminPageLimits = PageLimits{Default: 20, Max: 100}
)

// Normalize приводит запрос к допустимым границам.
func (l PageLimits) Normalize(req PageRequest) PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = l.Default
	}
	if req.Size > l.Max {
		req.Size = l.Max
	}
	return req
}

// Offset возвращает смещение первой записи страницы.
func (r PageRequest) Offset() int {
	if r.Page < 1 {
		return 0
	}
	return (r.Page - 1) * r.Size
}

// Pagination описывает положение страницы в выборке.
type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// NewPagination вычисляет метаданные страницы: TotalPages = ceil(total/size).
func NewPagination(page, size, total int) Pagination {
	p := Pagination{Page: page, PageSize: size, Total: total}
	if size > 0 {
		p.TotalPages = (total + size - 1) / size
	}
	p.HasNext = page < p.TotalPages
	p.HasPrev = page > 1
	return p
}

// OrderPage — страница заказов.
type OrderPage struct {
	Orders     []Order
	Pagination Pagination
	// StatusStats заполняется только для списков админки.
	StatusStats []StatusStat
}
