// Package report contains the read-only projections presentation code builds
// over a tracker's enriched deliveries: filtering, sorting, pagination, totals,
// analytics buckets and CSV export.
//
// Nothing in this package modifies its input; every function returns new
// slices.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/canetrack/canetrack/internal/sortby"
	"github.com/canetrack/canetrack/tracker"
)

// DateFormat is the layout used for delivery dates in searches and exports.
const DateFormat = "2006-01-02"

// DefaultPerPage is the page size used when a non-positive one is requested.
const DefaultPerPage = 10

// Filter selects deliveries. The zero value matches everything.
type Filter struct {
	// Search is matched case-insensitively against the joined location,
	// facility and operator names, the vehicle identifier and the delivery date
	// formatted with DateFormat.
	Search string

	// LocationID, FacilityID and OperatorID restrict to deliveries referencing
	// the given entity. 0 matches any.
	LocationID int64
	FacilityID int64
	OperatorID int64

	// From and To bound the delivery date by whole day, inclusive on both
	// ends. A zero time leaves that end open.
	From time.Time
	To   time.Time
}

// Match returns whether d is selected by f.
func (f Filter) Match(d tracker.EnrichedDelivery) bool {
	if f.Search != "" && !matchesSearch(d, f.Search) {
		return false
	}
	if f.LocationID != 0 && d.LocationID != f.LocationID {
		return false
	}
	if f.FacilityID != 0 && d.FacilityID != f.FacilityID {
		return false
	}
	if f.OperatorID != 0 && d.OperatorID != f.OperatorID {
		return false
	}
	if !f.From.IsZero() && d.DeliveryDate.Before(startOfDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && !d.DeliveryDate.Before(startOfDay(f.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func matchesSearch(d tracker.EnrichedDelivery, search string) bool {
	search = strings.ToLower(search)

	for _, s := range []*string{d.LocationName, d.FacilityName, d.OperatorName, d.VehicleIdentifier} {
		if s != nil && strings.Contains(strings.ToLower(*s), search) {
			return true
		}
	}

	return strings.Contains(d.DeliveryDate.Format(DateFormat), search)
}

// Apply returns the deliveries in ds that f matches, in their original order.
func (f Filter) Apply(ds []tracker.EnrichedDelivery) []tracker.EnrichedDelivery {
	matched := make([]tracker.EnrichedDelivery, 0, len(ds))
	for _, d := range ds {
		if f.Match(d) {
			matched = append(matched, d)
		}
	}
	return matched
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Field is a delivery attribute that deliveries can be sorted by.
type Field string

const (
	FieldID       Field = "id"
	FieldDate     Field = "date"
	FieldWeight   Field = "weight"
	FieldGross    Field = "gross"
	FieldNet      Field = "net"
	FieldLocation Field = "location"
	FieldFacility Field = "facility"
	FieldOperator Field = "operator"
)

var fieldLess = map[Field]func(left, right tracker.EnrichedDelivery) bool{
	FieldID: func(left, right tracker.EnrichedDelivery) bool {
		return left.ID < right.ID
	},
	FieldDate: func(left, right tracker.EnrichedDelivery) bool {
		return left.DeliveryDate.Before(right.DeliveryDate)
	},
	FieldWeight: func(left, right tracker.EnrichedDelivery) bool {
		return left.Weight.LessThan(right.Weight)
	},
	FieldGross: func(left, right tracker.EnrichedDelivery) bool {
		return left.GrossAmount.LessThan(right.GrossAmount)
	},
	FieldNet: func(left, right tracker.EnrichedDelivery) bool {
		return left.NetAmount.LessThan(right.NetAmount)
	},
	FieldLocation: func(left, right tracker.EnrichedDelivery) bool {
		return nameOf(left.LocationName) < nameOf(right.LocationName)
	},
	FieldFacility: func(left, right tracker.EnrichedDelivery) bool {
		return nameOf(left.FacilityName) < nameOf(right.FacilityName)
	},
	FieldOperator: func(left, right tracker.EnrichedDelivery) bool {
		return nameOf(left.OperatorName) < nameOf(right.OperatorName)
	},
}

// ParseField parses a sort field name. The empty string gives FieldDate.
func ParseField(s string) (Field, error) {
	if s == "" {
		return FieldDate, nil
	}

	f := Field(strings.ToLower(s))
	if _, ok := fieldLess[f]; !ok {
		return "", fmt.Errorf("not a sortable field: %q", s)
	}
	return f, nil
}

// nameOf gives the sort key of a joined name. Dangling references sort first.
func nameOf(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(*s)
}

// Sort returns ds ordered by field, ascending unless desc is set. Deliveries
// that compare equal keep their relative order. An unknown field leaves the
// order as it is.
func Sort(ds []tracker.EnrichedDelivery, field Field, desc bool) []tracker.EnrichedDelivery {
	lt, ok := fieldLess[field]
	if !ok {
		sorted := make([]tracker.EnrichedDelivery, len(ds))
		copy(sorted, ds)
		return sorted
	}
	if desc {
		lt = sortby.Descending(lt)
	}

	sorted := sortby.By(ds, lt)
	if len(ds) == 0 {
		return []tracker.EnrichedDelivery{}
	}
	return sorted
}

// Page is one page of a paginated list.
type Page struct {
	Items      []tracker.EnrichedDelivery `json:"items"`
	Page       int                        `json:"page"`
	PerPage    int                        `json:"perPage"`
	TotalPages int                        `json:"totalPages"`
	TotalItems int                        `json:"totalItems"`
}

// Paginate returns the 1-based page of ds holding perPage items. A page below 1
// is treated as 1 and one past the end as the last page. A perPage below 1 is
// DefaultPerPage.
func Paginate(ds []tracker.EnrichedDelivery, page, perPage int) Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	totalPages := (len(ds) + perPage - 1) / perPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(ds) {
		end = len(ds)
	}

	items := make([]tracker.EnrichedDelivery, end-start)
	copy(items, ds[start:end])

	return Page{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: len(ds),
	}
}
