package presenter

import (
	"errors"
	"fmt"
)

// PageSizes are the page sizes offered to the user.
var PageSizes = []int{10, 25, 50, 100}

const DefaultPageSize = 10

var ErrPageOutOfRange = errors.New("page out of range")

// Pagination tracks the current page of a list whose total is known.
type Pagination struct {
	Page       int
	PageSize   int
	TotalItems int64
}

func NewPagination(pageSize int) *Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pagination{Page: 1, PageSize: pageSize}
}

func (p *Pagination) TotalPages() int {
	if p.TotalItems <= 0 || p.PageSize <= 0 {
		return 0
	}
	return int((p.TotalItems + int64(p.PageSize) - 1) / int64(p.PageSize))
}

func (p *Pagination) HasNext() bool { return p.Page < p.TotalPages() }

func (p *Pagination) HasPrev() bool { return p.Page > 1 }

// Range returns the 1-based indexes of the first and last item on the
// current page, or 0, 0 for an empty list.
func (p *Pagination) Range() (first, last int64) {
	if p.TotalItems == 0 {
		return 0, 0
	}
	first = int64(p.Page-1)*int64(p.PageSize) + 1
	last = first + int64(p.PageSize) - 1
	if last > p.TotalItems {
		last = p.TotalItems
	}
	return first, last
}

func (p *Pagination) Next() error {
	if !p.HasNext() {
		return ErrPageOutOfRange
	}
	p.Page++
	return nil
}

func (p *Pagination) Prev() error {
	if !p.HasPrev() {
		return ErrPageOutOfRange
	}
	p.Page--
	return nil
}

func (p *Pagination) Goto(page int) error {
	if page != 1 && (page < 1 || page > p.TotalPages()) {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, p.TotalPages())
	}
	p.Page = page
	return nil
}

// SetPageSize switches size and returns to the first page.
func (p *Pagination) SetPageSize(size int) error {
	for _, s := range PageSizes {
		if s == size {
			p.PageSize = size
			p.Page = 1
			return nil
		}
	}
	return fmt.Errorf("unsupported page size %d", size)
}

// SetTotal records a fresh count and pulls the page back when the list shrank.
func (p *Pagination) SetTotal(total int64) {
	p.TotalItems = total
	if pages := p.TotalPages(); p.Page > pages && pages > 0 {
		p.Page = pages
	}
}

// Summary reads "Showing 1-25 of 95".
func (p *Pagination) Summary() string {
	first, last := p.Range()
	return fmt.Sprintf("Showing %d-%d of %d", first, last, p.TotalItems)
}
