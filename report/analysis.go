package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/internal/sortby"
	"github.com/canetrack/canetrack/tracker"
	"github.com/shopspring/decimal"
)

// Summary holds the totals over a set of deliveries.
type Summary struct {
	Count       int             `json:"count"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
	TotalGross  decimal.Decimal `json:"totalGross"`
	TotalNet    decimal.Decimal `json:"totalNet"`
}

// Summarize totals ds.
func Summarize(ds []tracker.EnrichedDelivery) Summary {
	sum := Summary{Count: len(ds)}
	for _, d := range ds {
		sum.TotalWeight = sum.TotalWeight.Add(d.Weight)
		sum.TotalGross = sum.TotalGross.Add(d.GrossAmount)
		sum.TotalNet = sum.TotalNet.Add(d.NetAmount)
	}
	return sum
}

// Recent returns the n most recent deliveries of ds by delivery date, newest
// first. Deliveries on the same date are ordered by descending ID.
func Recent(ds []tracker.EnrichedDelivery, n int) []tracker.EnrichedDelivery {
	if n < 0 {
		n = 0
	}

	newest := Sort(Sort(ds, FieldID, true), FieldDate, true)
	if len(newest) > n {
		newest = newest[:n]
	}
	return newest
}

// TimeFrame is a window of time ending at the present used to narrow the
// analytics.
type TimeFrame string

const (
	// Day is the calendar day of now.
	Day TimeFrame = "day"

	// Week is the seven days before now.
	Week TimeFrame = "week"

	// Month is the calendar month before now.
	Month TimeFrame = "month"

	// Year is the calendar year before now.
	Year TimeFrame = "year"

	// All does not narrow anything.
	All TimeFrame = "all"
)

// ParseTimeFrame parses the name of a TimeFrame. The empty string gives Month.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch tf := TimeFrame(strings.ToLower(s)); tf {
	case "":
		return Month, nil
	case Day, Week, Month, Year, All:
		return tf, nil
	default:
		return "", fmt.Errorf("not one of 'day', 'week', 'month', 'year', or 'all': %q", s)
	}
}

// Contains returns whether t falls within tf as seen at now.
func (tf TimeFrame) Contains(t, now time.Time) bool {
	switch tf {
	case Day:
		ty, tm, td := t.In(now.Location()).Date()
		ny, nm, nd := now.Date()
		return ty == ny && tm == nm && td == nd
	case Week:
		return !t.Before(now.AddDate(0, 0, -7))
	case Month:
		return !t.Before(now.AddDate(0, -1, 0))
	case Year:
		return !t.Before(now.AddDate(-1, 0, 0))
	default:
		return true
	}
}

// Apply returns the deliveries of ds whose delivery date falls within tf as
// seen at now.
func (tf TimeFrame) Apply(ds []tracker.EnrichedDelivery, now time.Time) []tracker.EnrichedDelivery {
	within := make([]tracker.EnrichedDelivery, 0, len(ds))
	for _, d := range ds {
		if tf.Contains(d.DeliveryDate, now) {
			within = append(within, d)
		}
	}
	return within
}

// Share is the total weight delivered from or to one named entity.
type Share struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Weight decimal.Decimal `json:"weight"`
}

// ByLocation totals the weight of ds per location, in the order of locs.
// Locations with no weight are left out.
func ByLocation(ds []tracker.EnrichedDelivery, locs []dao.Location) []Share {
	weights := map[int64]decimal.Decimal{}
	for _, d := range ds {
		weights[d.LocationID] = weights[d.LocationID].Add(d.Weight)
	}

	shares := []Share{}
	for _, l := range locs {
		if w := weights[l.ID]; w.IsPositive() {
			shares = append(shares, Share{ID: l.ID, Name: l.Name, Weight: w})
		}
	}
	return shares
}

// ByFacility totals the weight of ds per facility, in the order of facs.
// Facilities with no weight are left out.
func ByFacility(ds []tracker.EnrichedDelivery, facs []dao.Facility) []Share {
	weights := map[int64]decimal.Decimal{}
	for _, d := range ds {
		weights[d.FacilityID] = weights[d.FacilityID].Add(d.Weight)
	}

	shares := []Share{}
	for _, f := range facs {
		if w := weights[f.ID]; w.IsPositive() {
			shares = append(shares, Share{ID: f.ID, Name: f.Name, Weight: w})
		}
	}
	return shares
}

// Period is the weight and net amount delivered within one month or day.
type Period struct {
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	Weight decimal.Decimal `json:"weight"`
	Net    decimal.Decimal `json:"net"`
}

// ByMonth totals ds per calendar month of the delivery date, oldest first.
// Labels are formatted "2006-01".
func ByMonth(ds []tracker.EnrichedDelivery) []Period {
	return byPeriod(ds, "2006-01", func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	})
}

// ByDay totals ds per calendar day of the delivery date, oldest first. Labels
// are formatted with DateFormat.
func ByDay(ds []tracker.EnrichedDelivery) []Period {
	return byPeriod(ds, DateFormat, startOfDay)
}

func byPeriod(ds []tracker.EnrichedDelivery, layout string, truncate func(time.Time) time.Time) []Period {
	byLabel := map[string]*Period{}
	var periods []*Period

	for _, d := range ds {
		start := truncate(d.DeliveryDate)
		label := start.Format(layout)

		p, ok := byLabel[label]
		if !ok {
			p = &Period{Label: label, Start: start}
			byLabel[label] = p
			periods = append(periods, p)
		}
		p.Weight = p.Weight.Add(d.Weight)
		p.Net = p.Net.Add(d.NetAmount)
	}

	periods = sortby.By(periods, func(left, right *Period) bool {
		return left.Start.Before(right.Start)
	})

	out := make([]Period, len(periods))
	for i := range periods {
		out[i] = *periods[i]
	}
	return out
}
