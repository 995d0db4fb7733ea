package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/canetrack/canetrack/tracker"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"No", "Date", "Location", "Facility", "Operator", "Vehicle", "Weight", "Gross", "Net"}

// WriteCSV writes ds to w as CSV: CSVHeader and then one row per delivery in
// the order given. A dangling reference gives an empty cell.
func WriteCSV(w io.Writer, ds []tracker.EnrichedDelivery) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, d := range ds {
		row := []string{
			strconv.FormatInt(d.ID, 10),
			d.DeliveryDate.Format(DateFormat),
			deref(d.LocationName),
			deref(d.FacilityName),
			deref(d.OperatorName),
			deref(d.VehicleIdentifier),
			d.Weight.String(),
			d.GrossAmount.String(),
			d.NetAmount.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write delivery %d: %w", d.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFilename gives the name of an export file created on the given date.
func ExportFilename(date time.Time) string {
	return "deliveries-" + date.Format(DateFormat) + ".csv"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
