package datagrid

import "fmt"

// Pager maps a 1-based page number onto a proxy's page window.
type Pager struct {
	Page    int
	PerPage int
}

// Apply sets the page window for the current page.
func (p Pager) Apply(pq *ProxyQuery) error {
	if p.Page < 1 || p.PerPage < 1 {
		return fmt.Errorf("%w: page=%d per_page=%d", ErrInvalidArgument, p.Page, p.PerPage)
	}
	return pq.SetPageWindow((p.Page-1)*p.PerPage, p.PerPage)
}

// LastPage returns the number of the last page for total rows. An empty
// list still has one page.
func (p Pager) LastPage(total int64) int {
	if total <= 0 || p.PerPage < 1 {
		return 1
	}
	return int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
}
