package portal

import "context"

// paginate collects the remaining pages of a listing whose first page is
// already in hand. Fetching continues from page 2 and stops when a page
// comes back shorter than pageSize (the short page is kept) or
// element-wise identical to the previous one (the repeat is dropped):
// the portals answer out-of-range page numbers by re-serving the last
// page rather than an empty one. A full-size page that differs from its
// predecessor always continues, even when the totals suggest it is the
// last.
func paginate[T any](ctx context.Context, first []T, pageSize int, eq func(a, b T) bool, fetch func(ctx context.Context, page int) ([]T, error)) ([]T, error) {
	all := first
	if len(first) < pageSize {
		return all, nil
	}

	prev := first
	for page := 2; ; page++ {
		cur, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		if pagesEqual(prev, cur, eq) {
			return all, nil
		}
		all = append(all, cur...)
		if len(cur) < pageSize {
			return all, nil
		}
		prev = cur
	}
}

func pagesEqual[T any](a, b []T, eq func(a, b T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}
