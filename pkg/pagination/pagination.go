package pagination

// ItemsPerPage is the fixed marketplace page size.
const ItemsPerPage = 12

// TotalPages returns ceil(count/perPage) with a floor of 1 so an empty result
// still has one (empty) page.
func TotalPages(count, perPage int) int {
	if perPage <= 0 {
		perPage = ItemsPerPage
	}
	if count <= 0 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

// Clamp keeps page within [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Bounds returns the half-open [start, end) slice indexes of page within a
// collection of count items. Pages past the end yield an empty range.
func Bounds(page, perPage, count int) (int, int) {
	if perPage <= 0 {
		perPage = ItemsPerPage
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start > count {
		start = count
	}
	end := start + perPage
	if end > count {
		end = count
	}
	return start, end
}
