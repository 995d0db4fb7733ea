package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/tracker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLocs = []dao.Location{{ID: 1, Name: "Gembol"}, {ID: 2, Name: "Natah"}, {ID: 3, Name: "Pribadi"}}
	testFacs = []dao.Facility{
		{ID: 1, Name: "PG Geneng", TransportUnitPrice: decimal.NewFromInt(9000)},
		{ID: 2, Name: "PG Kecap", TransportUnitPrice: decimal.NewFromInt(7000)},
	}
	testOps = []dao.Operator{
		{ID: 1, Name: "Pras", VehicleIdentifier: "AB-1234-CD"},
		{ID: 2, Name: "Duwex", VehicleIdentifier: "AB-5678-EF"},
	}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func delivery(id, loc, fac, op int64, date time.Time, weight, gross, net int64) dao.Delivery {
	return dao.Delivery{
		ID:           id,
		LocationID:   loc,
		FacilityID:   fac,
		OperatorID:   op,
		DeliveryDate: date,
		Weight:       decimal.NewFromInt(weight),
		GrossAmount:  decimal.NewFromInt(gross),
		NetAmount:    decimal.NewFromInt(net),
	}
}

// testDeliveries gives four enriched deliveries; the fourth references a
// location that does not exist.
func testDeliveries() []tracker.EnrichedDelivery {
	return tracker.Enrich([]dao.Delivery{
		delivery(1, 1, 1, 1, day(2024, time.January, 5), 10, 15000, 3000),
		delivery(2, 2, 2, 2, day(2024, time.February, 10), 20, 30000, 9000),
		delivery(3, 1, 2, 2, day(2024, time.February, 10), 5, 7500, -500),
		delivery(4, 9, 1, 1, day(2024, time.March, 1), 15, 22500, 4000),
	}, testLocs, testFacs, testOps)
}

func ids(ds []tracker.EnrichedDelivery) []int64 {
	out := make([]int64, len(ds))
	for i := range ds {
		out[i] = ds[i].ID
	}
	return out
}

func Test_Filter_Apply(t *testing.T) {
	testCases := []struct {
		name   string
		filter Filter
		expect []int64
	}{
		{name: "zero filter", filter: Filter{}, expect: []int64{1, 2, 3, 4}},
		{name: "search location name", filter: Filter{Search: "gemBOL"}, expect: []int64{1, 3}},
		{name: "search facility name", filter: Filter{Search: "kecap"}, expect: []int64{2, 3}},
		{name: "search operator name", filter: Filter{Search: "pras"}, expect: []int64{1, 4}},
		{name: "search vehicle", filter: Filter{Search: "5678"}, expect: []int64{2, 3}},
		{name: "search date", filter: Filter{Search: "2024-02"}, expect: []int64{2, 3}},
		{name: "search no match", filter: Filter{Search: "glodok"}, expect: []int64{}},
		{name: "location id", filter: Filter{LocationID: 1}, expect: []int64{1, 3}},
		{name: "dangling location id", filter: Filter{LocationID: 9}, expect: []int64{4}},
		{name: "facility id", filter: Filter{FacilityID: 1}, expect: []int64{1, 4}},
		{name: "operator id", filter: Filter{OperatorID: 2}, expect: []int64{2, 3}},
		{name: "combined", filter: Filter{OperatorID: 2, LocationID: 1}, expect: []int64{3}},
		{
			name:   "date range inclusive by day",
			filter: Filter{From: day(2024, time.February, 10).Add(15 * time.Hour), To: day(2024, time.March, 1).Add(time.Hour)},
			expect: []int64{2, 3, 4},
		},
		{name: "open start", filter: Filter{To: day(2024, time.January, 31)}, expect: []int64{1}},
		{name: "open end", filter: Filter{From: day(2024, time.February, 11)}, expect: []int64{4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.filter.Apply(testDeliveries())

			assert.Equal(tc.expect, ids(actual))
		})
	}
}

func Test_Sort(t *testing.T) {
	testCases := []struct {
		name   string
		field  Field
		desc   bool
		expect []int64
	}{
		{name: "id ascending", field: FieldID, expect: []int64{1, 2, 3, 4}},
		{name: "id descending", field: FieldID, desc: true, expect: []int64{4, 3, 2, 1}},
		{name: "date keeps ties stable", field: FieldDate, expect: []int64{1, 2, 3, 4}},
		{name: "date descending keeps ties stable", field: FieldDate, desc: true, expect: []int64{4, 2, 3, 1}},
		{name: "weight", field: FieldWeight, expect: []int64{3, 1, 4, 2}},
		{name: "gross descending", field: FieldGross, desc: true, expect: []int64{2, 4, 1, 3}},
		{name: "net", field: FieldNet, expect: []int64{3, 1, 4, 2}},
		{name: "location, dangling first", field: FieldLocation, expect: []int64{4, 1, 3, 2}},
		{name: "facility", field: FieldFacility, expect: []int64{1, 4, 2, 3}},
		{name: "operator", field: FieldOperator, expect: []int64{2, 3, 1, 4}},
		{name: "unknown field", field: Field("color"), expect: []int64{1, 2, 3, 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			input := testDeliveries()
			actual := Sort(input, tc.field, tc.desc)

			assert.Equal(tc.expect, ids(actual))
			assert.Equal([]int64{1, 2, 3, 4}, ids(input), "input must not be modified")
		})
	}
}

func Test_ParseField(t *testing.T) {
	assert := assert.New(t)

	f, err := ParseField("")
	assert.NoError(err)
	assert.Equal(FieldDate, f)

	f, err = ParseField("Weight")
	assert.NoError(err)
	assert.Equal(FieldWeight, f)

	_, err = ParseField("color")
	assert.Error(err)
}

func Test_Paginate(t *testing.T) {
	testCases := []struct {
		name        string
		page        int
		perPage     int
		expectIDs   []int64
		expectPage  int
		expectPer   int
		expectPages int
	}{
		{name: "first page", page: 1, perPage: 3, expectIDs: []int64{1, 2, 3}, expectPage: 1, expectPer: 3, expectPages: 2},
		{name: "last partial page", page: 2, perPage: 3, expectIDs: []int64{4}, expectPage: 2, expectPer: 3, expectPages: 2},
		{name: "past the end", page: 7, perPage: 3, expectIDs: []int64{4}, expectPage: 2, expectPer: 3, expectPages: 2},
		{name: "below one", page: -1, perPage: 2, expectIDs: []int64{1, 2}, expectPage: 1, expectPer: 2, expectPages: 2},
		{name: "default page size", page: 1, perPage: 0, expectIDs: []int64{1, 2, 3, 4}, expectPage: 1, expectPer: DefaultPerPage, expectPages: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := Paginate(testDeliveries(), tc.page, tc.perPage)

			assert.Equal(tc.expectIDs, ids(actual.Items))
			assert.Equal(tc.expectPage, actual.Page)
			assert.Equal(tc.expectPer, actual.PerPage)
			assert.Equal(tc.expectPages, actual.TotalPages)
			assert.Equal(4, actual.TotalItems)
		})
	}
}

func Test_Paginate_empty(t *testing.T) {
	assert := assert.New(t)

	actual := Paginate(nil, 3, 5)

	assert.Equal(1, actual.Page)
	assert.Equal(0, actual.TotalPages)
	assert.Equal(0, actual.TotalItems)
	assert.NotNil(actual.Items)
	assert.Len(actual.Items, 0)
}

func Test_Summarize(t *testing.T) {
	assert := assert.New(t)

	sum := Summarize(testDeliveries())

	assert.Equal(4, sum.Count)
	assert.Equal("50", sum.TotalWeight.String())
	assert.Equal("75000", sum.TotalGross.String())
	assert.Equal("15500", sum.TotalNet.String())

	empty := Summarize(nil)
	assert.Equal(0, empty.Count)
	assert.True(empty.TotalNet.IsZero())
}

func Test_Recent(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]int64{4, 3, 2}, ids(Recent(testDeliveries(), 3)))
	assert.Equal([]int64{4, 3, 2, 1}, ids(Recent(testDeliveries(), 10)))
	assert.Len(Recent(testDeliveries(), 0), 0)
}

func Test_TimeFrame_Contains(t *testing.T) {
	now := time.Date(2024, time.March, 15, 14, 0, 0, 0, time.UTC)

	testCases := []struct {
		name   string
		tf     TimeFrame
		t      time.Time
		expect bool
	}{
		{name: "day, same date", tf: Day, t: day(2024, time.March, 15), expect: true},
		{name: "day, previous date", tf: Day, t: day(2024, time.March, 14), expect: false},
		{name: "week, within", tf: Week, t: now.AddDate(0, 0, -7), expect: true},
		{name: "week, before", tf: Week, t: day(2024, time.March, 8), expect: false},
		{name: "month, within", tf: Month, t: day(2024, time.February, 16), expect: true},
		{name: "month, before", tf: Month, t: day(2024, time.February, 15), expect: false},
		{name: "year, within", tf: Year, t: day(2023, time.March, 16), expect: true},
		{name: "year, before", tf: Year, t: day(2023, time.March, 15), expect: false},
		{name: "all", tf: All, t: day(1999, time.January, 1), expect: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.tf.Contains(tc.t, now))
		})
	}
}

func Test_ParseTimeFrame(t *testing.T) {
	assert := assert.New(t)

	tf, err := ParseTimeFrame("")
	assert.NoError(err)
	assert.Equal(Month, tf)

	tf, err = ParseTimeFrame("WEEK")
	assert.NoError(err)
	assert.Equal(Week, tf)

	_, err = ParseTimeFrame("decade")
	assert.Error(err)
}

func Test_ByLocation(t *testing.T) {
	assert := assert.New(t)

	shares := ByLocation(testDeliveries(), testLocs)

	// Pribadi has no deliveries and the dangling location 9 has no entity
	require.Len(t, shares, 2)
	assert.Equal("Gembol", shares[0].Name)
	assert.Equal("15", shares[0].Weight.String())
	assert.Equal("Natah", shares[1].Name)
	assert.Equal("20", shares[1].Weight.String())
}

func Test_ByFacility(t *testing.T) {
	assert := assert.New(t)

	shares := ByFacility(testDeliveries(), testFacs)

	require.Len(t, shares, 2)
	assert.Equal("PG Geneng", shares[0].Name)
	assert.Equal("25", shares[0].Weight.String())
	assert.Equal("PG Kecap", shares[1].Name)
	assert.Equal("25", shares[1].Weight.String())

	assert.Len(ByFacility(nil, testFacs), 0)
}

func Test_ByMonth(t *testing.T) {
	assert := assert.New(t)

	ds := testDeliveries()
	// reversed input must still come out oldest first
	for i, j := 0, len(ds)-1; i < j; i, j = i+1, j-1 {
		ds[i], ds[j] = ds[j], ds[i]
	}

	periods := ByMonth(ds)

	require.Len(t, periods, 3)
	assert.Equal("2024-01", periods[0].Label)
	assert.Equal("10", periods[0].Weight.String())
	assert.Equal("2024-02", periods[1].Label)
	assert.Equal("25", periods[1].Weight.String())
	assert.Equal("8500", periods[1].Net.String())
	assert.Equal("2024-03", periods[2].Label)
	assert.True(periods[2].Start.Equal(day(2024, time.March, 1)))
}

func Test_ByDay(t *testing.T) {
	assert := assert.New(t)

	ds := testDeliveries()
	ds[1].DeliveryDate = ds[1].DeliveryDate.Add(9 * time.Hour)

	periods := ByDay(ds)

	require.Len(t, periods, 3)
	assert.Equal("2024-01-05", periods[0].Label)
	assert.Equal("2024-02-10", periods[1].Label)
	assert.Equal("25", periods[1].Weight.String())
	assert.Equal("2024-03-01", periods[2].Label)
}

func Test_WriteCSV(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	err := WriteCSV(&buf, testDeliveries()[2:])

	require.NoError(t, err)
	expect := "No,Date,Location,Facility,Operator,Vehicle,Weight,Gross,Net\n" +
		"3,2024-02-10,Gembol,PG Kecap,Duwex,AB-5678-EF,5,7500,-500\n" +
		"4,2024-03-01,,PG Geneng,Pras,AB-1234-CD,15,22500,4000\n"
	assert.Equal(expect, buf.String())
}

func Test_WriteCSV_quotesNames(t *testing.T) {
	assert := assert.New(t)

	ds := testDeliveries()[:1]
	name := `Kebun "Lor", Blok 2`
	ds[0].LocationName = &name

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	assert.Contains(buf.String(), `"Kebun ""Lor"", Blok 2"`)
}

func Test_ExportFilename(t *testing.T) {
	assert.Equal(t, "deliveries-2024-03-15.csv", ExportFilename(day(2024, time.March, 15)))
}
