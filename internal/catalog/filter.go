package catalog

import (
	"fmt"
	"sort"

	"github.com/mrlokans/readtrack/internal/entities"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterPlaintext Filter = "plaintext"
	FilterPDF       Filter = "pdf"
	FilterFavorites Filter = "favorites"
)

type SortOrder string

const (
	SortNone         SortOrder = "none"
	SortProgressDesc SortOrder = "progress_desc"
)

// ParseFilter accepts the empty string as FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPlaintext, FilterPDF, FilterFavorites:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrInvalidView, s)
	}
}

// ParseSort accepts the empty string as SortNone.
func ParseSort(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortNone, nil
	case SortNone, SortProgressDesc:
		return o, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidView, s)
	}
}

// Apply selects and orders books. It is pure: the result depends only on
// its arguments, and ties under SortProgressDesc keep catalog order.
func Apply(books []entities.Book, progress entities.ProgressRecord, filter Filter, order SortOrder) []entities.Book {
	result := make([]entities.Book, 0, len(books))
	for _, b := range books {
		if matches(b, filter) {
			result = append(result, b)
		}
	}

	if order == SortProgressDesc {
		sort.SliceStable(result, func(i, j int) bool {
			return progress[result[i].ID] > progress[result[j].ID]
		})
	}
	return result
}

func matches(b entities.Book, filter Filter) bool {
	switch filter {
	case FilterPlaintext:
		return b.Format == entities.BookFormatPlaintext
	case FilterPDF:
		return b.Format == entities.BookFormatPDF
	case FilterFavorites:
		return b.Favorite
	default:
		return true
	}
}
