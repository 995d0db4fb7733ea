package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/report"
	"github.com/canetrack/canetrack/tracker"
	"github.com/shopspring/decimal"
)

// deliveryRequest is the body of a request to create a delivery. Derived
// fields are always computed by the server and cannot be given.
type deliveryRequest struct {
	LocationID       int64           `json:"locationId"`
	FacilityID       int64           `json:"facilityId"`
	OperatorID       int64           `json:"operatorId"`
	DeliveryDate     string          `json:"deliveryDate"`
	Weight           decimal.Decimal `json:"weight"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	HarvestUnitPrice decimal.Decimal `json:"harvestUnitPrice"`
}

func (dr deliveryRequest) delivery() (dao.Delivery, error) {
	d := dao.Delivery{
		LocationID:       dr.LocationID,
		FacilityID:       dr.FacilityID,
		OperatorID:       dr.OperatorID,
		Weight:           dr.Weight,
		UnitPrice:        dr.UnitPrice,
		HarvestUnitPrice: dr.HarvestUnitPrice,
	}

	if dr.DeliveryDate != "" {
		date, err := parseDate(dr.DeliveryDate)
		if err != nil {
			return d, canetrack.NewError("deliveryDate", err, canetrack.ErrValidationFailed)
		}
		d.DeliveryDate = date
	}

	return d, d.Validate()
}

// deliveryPatchRequest is the body of a request to update a delivery. Absent
// fields are left as they are.
type deliveryPatchRequest struct {
	LocationID       *int64           `json:"locationId"`
	FacilityID       *int64           `json:"facilityId"`
	OperatorID       *int64           `json:"operatorId"`
	DeliveryDate     *string          `json:"deliveryDate"`
	Weight           *decimal.Decimal `json:"weight"`
	UnitPrice        *decimal.Decimal `json:"unitPrice"`
	HarvestUnitPrice *decimal.Decimal `json:"harvestUnitPrice"`
}

func (pr deliveryPatchRequest) patch() (dao.DeliveryPatch, error) {
	p := dao.DeliveryPatch{
		LocationID:       pr.LocationID,
		FacilityID:       pr.FacilityID,
		OperatorID:       pr.OperatorID,
		Weight:           pr.Weight,
		UnitPrice:        pr.UnitPrice,
		HarvestUnitPrice: pr.HarvestUnitPrice,
	}

	if pr.DeliveryDate != nil {
		date, err := parseDate(*pr.DeliveryDate)
		if err != nil {
			return p, canetrack.NewError("deliveryDate", err, canetrack.ErrValidationFailed)
		}
		p.DeliveryDate = &date
	}

	return p, p.Validate()
}

// enrich joins d against the current reference data.
func (s *Server) enrich(d dao.Delivery) tracker.EnrichedDelivery {
	return tracker.Enrich([]dao.Delivery{d}, s.tr.Locations(), s.tr.Facilities(), s.tr.Operators())[0]
}

func (s *Server) epCreateDelivery(req *http.Request) Result {
	var dr deliveryRequest
	if err := ParseJSONRequest(req, &dr); err != nil {
		return errResult(err, "create delivery")
	}
	d, err := dr.delivery()
	if err != nil {
		return errResult(err, "create delivery")
	}

	created, err := s.tr.RecordDelivery(req.Context(), d)
	if err != nil {
		return errResult(err, "create delivery")
	}

	return Created(s.enrich(created), "created delivery %d", created.ID)
}

func (s *Server) epGetDelivery(req *http.Request) Result {
	id := RequireIDParam(req)

	for _, d := range s.tr.Enriched() {
		if d.ID == id {
			return OK(d, "got delivery %d", id)
		}
	}
	return NotFound("delivery %d does not exist", id)
}

// epUpdateDelivery merges the patch into the stored delivery and reprices the
// result, so the stored derived fields always agree with the stored inputs.
func (s *Server) epUpdateDelivery(req *http.Request) Result {
	id := RequireIDParam(req)

	var pr deliveryPatchRequest
	if err := ParseJSONRequest(req, &pr); err != nil {
		return errResult(err, "update delivery")
	}
	p, err := pr.patch()
	if err != nil {
		return errResult(err, "update delivery")
	}

	updated, err := s.tr.RepriceDelivery(req.Context(), id, p)
	if err != nil {
		return errResult(err, "update delivery")
	}

	return OK(s.enrich(updated), "updated delivery %d", id)
}

func (s *Server) epDeleteDelivery(req *http.Request) Result {
	id := RequireIDParam(req)

	if err := s.tr.DeleteDelivery(req.Context(), id); err != nil {
		return errResult(err, "delete delivery")
	}

	return NoContent("deleted delivery %d", id)
}

// queryDeliveries gives the enriched deliveries selected and ordered by the
// query of req. Deliveries are newest first unless the query says otherwise.
func (s *Server) queryDeliveries(req *http.Request) ([]tracker.EnrichedDelivery, error) {
	var f report.Filter
	var err error

	q := req.URL.Query()
	f.Search = q.Get("search")
	if f.LocationID, err = queryInt64(req, "location"); err != nil {
		return nil, err
	}
	if f.FacilityID, err = queryInt64(req, "facility"); err != nil {
		return nil, err
	}
	if f.OperatorID, err = queryInt64(req, "operator"); err != nil {
		return nil, err
	}
	if f.From, err = queryDate(req, "from"); err != nil {
		return nil, err
	}
	if f.To, err = queryDate(req, "to"); err != nil {
		return nil, err
	}

	field, err := report.ParseField(q.Get("sort"))
	if err != nil {
		return nil, canetrack.NewError("query sort", err, canetrack.ErrValidationFailed)
	}

	var desc bool
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
		desc = true
	case "asc":
		desc = false
	default:
		return nil, canetrack.NewError("query order: must be 'asc' or 'desc'", canetrack.ErrValidationFailed)
	}

	return report.Sort(f.Apply(s.tr.Enriched()), field, desc), nil
}

func (s *Server) epListDeliveries(req *http.Request) Result {
	ds, err := s.queryDeliveries(req)
	if err != nil {
		return errResult(err, "list deliveries")
	}

	page, err := queryInt(req, "page")
	if err != nil {
		return errResult(err, "list deliveries")
	}
	perPage, err := queryInt(req, "perPage")
	if err != nil {
		return errResult(err, "list deliveries")
	}

	p := report.Paginate(ds, page, perPage)
	return OK(p, "listed page %d/%d of %d deliveries", p.Page, p.TotalPages, p.TotalItems)
}

func (s *Server) epExportDeliveries(req *http.Request) Result {
	ds, err := s.queryDeliveries(req)
	if err != nil {
		return errResult(err, "export deliveries")
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, ds); err != nil {
		return InternalServerError("export deliveries: %s", err)
	}

	filename := report.ExportFilename(s.now())
	return Attachment(buf.Bytes(), "text/csv; charset=utf-8", filename, "exported %d deliveries", len(ds))
}

type summaryResponse struct {
	Summary report.Summary             `json:"summary"`
	Recent  []tracker.EnrichedDelivery `json:"recent"`
}

// DefaultRecent is how many recent deliveries the summary includes when the
// request does not say.
const DefaultRecent = 5

func (s *Server) epSummary(req *http.Request) Result {
	n, err := queryInt(req, "recent")
	if err != nil {
		return errResult(err, "summary")
	}
	if n < 1 {
		n = DefaultRecent
	}

	ds := s.tr.Enriched()
	resp := summaryResponse{
		Summary: report.Summarize(ds),
		Recent:  report.Recent(ds, n),
	}
	return OK(resp, "summarized %d deliveries", resp.Summary.Count)
}

type analysisResponse struct {
	TimeFrame  report.TimeFrame `json:"timeframe"`
	Summary    report.Summary   `json:"summary"`
	ByLocation []report.Share   `json:"byLocation"`
	ByFacility []report.Share   `json:"byFacility"`
	ByMonth    []report.Period  `json:"byMonth"`
	ByDay      []report.Period  `json:"byDay"`
}

func (s *Server) epAnalysis(req *http.Request) Result {
	tf, err := report.ParseTimeFrame(req.URL.Query().Get("timeframe"))
	if err != nil {
		return BadRequest(err.Error(), "analysis: %s", err)
	}

	ds := tf.Apply(s.tr.Enriched(), s.now())
	resp := analysisResponse{
		TimeFrame:  tf,
		Summary:    report.Summarize(ds),
		ByLocation: report.ByLocation(ds, s.tr.Locations()),
		ByFacility: report.ByFacility(ds, s.tr.Facilities()),
		ByMonth:    report.ByMonth(ds),
		ByDay:      report.ByDay(ds),
	}
	return OK(resp, "analyzed %d deliveries for %s", resp.Summary.Count, tf)
}
