package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Page holds normalized offset pagination inputs.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps page number and size into their allowed ranges.
func Normalize(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages computes the page count for a total row count, minimum 1.
func (p Page) TotalPages(total int64) int {
	if total <= 0 {
		return 1
	}
	pages := int(total) / p.Size
	if int(total)%p.Size != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}
