package browser

// PageSize is the number of cards on one page.
const PageSize = 12

// TotalPages is ceil(n / PageSize).
func TotalPages(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// Pager tracks a 1-indexed page over a list of Total items.
type Pager struct {
	Page  int
	Total int
}

func NewPager(total int) Pager {
	return Pager{Page: 1, Total: total}
}

func (p Pager) TotalPages() int {
	return TotalPages(p.Total)
}

// lastPage is the highest reachable page; an empty list still has page 1.
func (p Pager) lastPage() int {
	return max(1, p.TotalPages())
}

func (p Pager) HasPrev() bool {
	return p.Page > 1
}

func (p Pager) HasNext() bool {
	return p.Page < p.TotalPages()
}

// Next moves forward one page, staying on the last page.
func (p *Pager) Next() {
	p.Page = min(p.lastPage(), p.Page+1)
}

// Prev moves back one page, staying on page 1.
func (p *Pager) Prev() {
	p.Page = max(1, p.Page-1)
}

// Goto clamps page into [1, TotalPages].
func (p *Pager) Goto(page int) {
	p.Page = min(p.lastPage(), max(1, page))
}

// Reset returns to page 1 for a list of total items.
func (p *Pager) Reset(total int) {
	p.Total = total
	p.Page = 1
}

// Bounds is the half-open index range of the current page, always within
// [0, Total].
func (p Pager) Bounds() (start, end int) {
	start = min(p.Total, max(0, (p.Page-1)*PageSize))
	end = min(p.Total, start+PageSize)
	return start, end
}

// Paginate returns the items on the given page.
func Paginate[T any](items []T, page int) []T {
	p := Pager{Total: len(items)}
	p.Goto(page)
	start, end := p.Bounds()
	return items[start:end]
}
