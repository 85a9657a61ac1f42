// Package listing produces stable, sorted, paginated pages over the full item
// set of a container. The entire set is fetched and totally ordered before any
// pagination is applied, so page boundaries never split or reorder relative to
// a fixed full sort.
package listing

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/utils"
)

const (
	// DefaultTop is the page size applied when the caller does not specify one.
	DefaultTop = 50

	// MaxTop is the largest page size a caller may request.
	MaxTop = 200
)

// accepted orderBy keys; anything else silently falls back to name
const (
	OrderByName         = "name"
	OrderByLastModified = "lastmodifieddatetime"
	OrderBySize         = "size"
)

// accepted orderDir values; anything else silently falls back to asc
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Parameters are the raw paging parameters as supplied by a caller.
// Normalize before use.
type Parameters struct {
	Top      int
	Skip     int
	OrderBy  string
	OrderDir string
}

// Normalize clamps and defaults the parameters: top to [1, MaxTop] with
// DefaultTop for zero, skip to >= 0, orderBy and orderDir to their accepted
// sets (case-insensitively) with silent fallbacks.
func (p Parameters) Normalize() Parameters {
	out := p

	if out.Top == 0 {
		out.Top = DefaultTop
	}
	if out.Top < 1 {
		out.Top = 1
	}
	if out.Top > MaxTop {
		out.Top = MaxTop
	}
	if out.Skip < 0 {
		out.Skip = 0
	}

	switch strings.ToLower(out.OrderBy) {
	case OrderByName, OrderByLastModified, OrderBySize:
		out.OrderBy = strings.ToLower(out.OrderBy)
	default:
		out.OrderBy = OrderByName
	}

	switch strings.ToLower(out.OrderDir) {
	case OrderAsc, OrderDesc:
		out.OrderDir = strings.ToLower(out.OrderDir)
	default:
		out.OrderDir = OrderAsc
	}
	return out
}

// NextToken encodes the continuation query for the page after this one.
func (p Parameters) NextToken() string {
	v := url.Values{}
	v.Set("top", fmt.Sprint(p.Top))
	v.Set("skip", fmt.Sprint(p.Skip+p.Top))
	v.Set("orderBy", p.OrderBy)
	v.Set("orderDir", p.OrderDir)
	return v.Encode()
}

// Page is one listing page. NextLink is empty on the last page.
type Page struct {
	Items      []drivegate.Item `json:"items"`
	TotalCount int              `json:"totalCount"`
	NextLink   string           `json:"nextLink,omitempty"`
}

// Paginator pages container listings fetched through the gateway.
type Paginator struct {
	gateway drivegate.Gateway
}

// NewPaginator initializes a Paginator over the given gateway.
func NewPaginator(gateway drivegate.Gateway) *Paginator {
	return &Paginator{gateway: gateway}
}

// Page fetches the container's full item set, orders it with a stable total
// sort, and slices out the requested window. Identical parameters against an
// unchanged item set always yield identical ordering and an identical
// continuation token.
func (p *Paginator) Page(ctx context.Context, containerID string, params Parameters) (Page, error) {
	params = params.Normalize()

	items, err := p.gateway.ListItems(ctx, containerID)
	if err != nil {
		return Page{}, utils.WrapListError(err)
	}

	sort.SliceStable(items, less(items, params.OrderBy, params.OrderDir))

	total := len(items)
	start := params.Skip
	if start > total {
		start = total
	}
	end := start + params.Top
	if end > total {
		end = total
	}

	page := Page{
		Items:      items[start:end],
		TotalCount: total,
	}
	if params.Skip+len(page.Items) < total {
		page.NextLink = params.NextToken()
	}
	return page, nil
}

// less builds the comparator for the requested key and direction. Folders
// sort with size 0; ties fall back to name, then ID, keeping the order total
// so page boundaries are deterministic.
func less(items []drivegate.Item, orderBy, orderDir string) func(i, j int) bool {
	cmp := func(a, b *drivegate.Item) int {
		switch orderBy {
		case OrderBySize:
			if d := a.SizeOrZero() - b.SizeOrZero(); d != 0 {
				if d < 0 {
					return -1
				}
				return 1
			}
		case OrderByLastModified:
			if a.LastModified.Before(b.LastModified) {
				return -1
			}
			if a.LastModified.After(b.LastModified) {
				return 1
			}
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}

	if orderDir == OrderDesc {
		return func(i, j int) bool { return cmp(&items[i], &items[j]) > 0 }
	}
	return func(i, j int) bool { return cmp(&items[i], &items[j]) < 0 }
}
