package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/tracker"
	"github.com/go-chi/chi/v5"
)

// errResult maps an error from the tracker or from request parsing onto a
// Result. what describes the attempted operation for the log.
func errResult(err error, what string) Result {
	switch {
	case errors.Is(err, canetrack.ErrValidationFailed):
		return BadRequest(err.Error(), "%s: %s", what, err)
	case errors.Is(err, canetrack.ErrNotFound):
		return NotFound("%s: %s", what, err)
	case errors.Is(err, tracker.ErrNotReady):
		return ServiceUnavailable("%s: %s", what, err)
	default:
		return InternalServerError("%s: %s", what, err)
	}
}

// ready wraps a read endpoint so that it gives an HTTP-503 once the tracker
// has failed. While a refresh is in progress reads are still served from the
// previous snapshot.
func (s *Server) ready(ep EndpointFunc) EndpointFunc {
	return func(req *http.Request) Result {
		if s.tr.State() == tracker.Failed {
			return ServiceUnavailable("tracker failed: %s", s.tr.Err())
		}
		return ep(req)
	}
}

type statusResponse struct {
	State      string `json:"state"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	Refreshed  string `json:"refreshed,omitempty"`
	Locations  int    `json:"locations"`
	Facilities int    `json:"facilities"`
	Operators  int    `json:"operators"`
	Deliveries int    `json:"deliveries"`
}

func (s *Server) status() statusResponse {
	snap := s.tr.Snapshot()
	resp := statusResponse{
		State:      s.tr.State().String(),
		Loading:    s.tr.Loading(),
		Locations:  len(snap.Locations),
		Facilities: len(snap.Facilities),
		Operators:  len(snap.Operators),
		Deliveries: len(snap.Deliveries),
	}
	if err := s.tr.Err(); err != nil {
		resp.Error = err.Error()
	}
	if !snap.Refreshed.IsZero() {
		resp.Refreshed = snap.Refreshed.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) epStatus(req *http.Request) Result {
	st := s.status()
	return OK(st, "state is %s", st.State)
}

func (s *Server) epRefresh(req *http.Request) Result {
	if err := s.tr.Refresh(req.Context()); err != nil {
		return errResult(err, "refresh")
	}
	return OK(s.status(), "refreshed")
}

// validator is a value that can check its own fields.
type validator interface {
	Validate() error
}

type record[M any] interface {
	dao.Model[M]
	validator
}

// entityRoutes serves the list, create, get, update and delete endpoints of
// one of the reference collections.
type entityRoutes[M record[M], P validator] struct {
	s      *Server
	name   string
	list   func() []M
	add    func(context.Context, M) (M, error)
	update func(context.Context, int64, P) (M, error)
	del    func(context.Context, int64) error
}

func locationRoutes(s *Server) entityRoutes[dao.Location, dao.LocationPatch] {
	return entityRoutes[dao.Location, dao.LocationPatch]{
		s:      s,
		name:   "location",
		list:   s.tr.Locations,
		add:    s.tr.AddLocation,
		update: s.tr.UpdateLocation,
		del:    s.tr.DeleteLocation,
	}
}

func facilityRoutes(s *Server) entityRoutes[dao.Facility, dao.FacilityPatch] {
	return entityRoutes[dao.Facility, dao.FacilityPatch]{
		s:      s,
		name:   "facility",
		list:   s.tr.Facilities,
		add:    s.tr.AddFacility,
		update: s.tr.UpdateFacility,
		del:    s.tr.DeleteFacility,
	}
}

func operatorRoutes(s *Server) entityRoutes[dao.Operator, dao.OperatorPatch] {
	return entityRoutes[dao.Operator, dao.OperatorPatch]{
		s:      s,
		name:   "operator",
		list:   s.tr.Operators,
		add:    s.tr.AddOperator,
		update: s.tr.UpdateOperator,
		del:    s.tr.DeleteOperator,
	}
}

// route adds the collection endpoints to r. Each of itemRoutes is called with
// the router of a single entity so that more endpoints can be added below it.
func (er entityRoutes[M, P]) route(r chi.Router, itemRoutes ...func(chi.Router)) {
	s := er.s

	r.Get("/", s.Endpoint(s.ready(er.epList)))
	r.Post("/", s.Endpoint(er.epCreate))
	r.Route("/"+PathParam("id:num"), func(r chi.Router) {
		r.Get("/", s.Endpoint(s.ready(er.epGet)))
		r.Patch("/", s.Endpoint(er.epUpdate))
		r.Delete("/", s.Endpoint(er.epDelete))

		for _, add := range itemRoutes {
			add(r)
		}
	})
}

func (er entityRoutes[M, P]) epList(req *http.Request) Result {
	all := er.list()
	return OK(all, "listed %d %s entities", len(all), er.name)
}

func (er entityRoutes[M, P]) epGet(req *http.Request) Result {
	id := RequireIDParam(req)

	for _, m := range er.list() {
		if m.ModelID() == id {
			return OK(m, "got %s %d", er.name, id)
		}
	}
	return NotFound("%s %d does not exist", er.name, id)
}

func (er entityRoutes[M, P]) epCreate(req *http.Request) Result {
	var m M
	if err := ParseJSONRequest(req, &m); err != nil {
		return errResult(err, "create "+er.name)
	}
	if err := m.Validate(); err != nil {
		return errResult(err, "create "+er.name)
	}

	created, err := er.add(req.Context(), m)
	if err != nil {
		return errResult(err, "create "+er.name)
	}

	return Created(created, "created %s %d", er.name, created.ModelID())
}

func (er entityRoutes[M, P]) epUpdate(req *http.Request) Result {
	id := RequireIDParam(req)

	var p P
	if err := ParseJSONRequest(req, &p); err != nil {
		return errResult(err, "update "+er.name)
	}
	if err := p.Validate(); err != nil {
		return errResult(err, "update "+er.name)
	}

	updated, err := er.update(req.Context(), id, p)
	if err != nil {
		return errResult(err, "update "+er.name)
	}

	return OK(updated, "updated %s %d", er.name, id)
}

func (er entityRoutes[M, P]) epDelete(req *http.Request) Result {
	id := RequireIDParam(req)

	if err := er.del(req.Context(), id); err != nil {
		return errResult(err, "delete "+er.name)
	}

	return NoContent("deleted %s %d", er.name, id)
}

type transportPriceResponse struct {
	FacilityID         int64  `json:"facilityId"`
	TransportUnitPrice string `json:"transportUnitPrice"`
}

func (s *Server) epTransportPrice(req *http.Request) Result {
	id := RequireIDParam(req)
	price := s.tr.TransportUnitPrice(id)

	return OK(transportPriceResponse{FacilityID: id, TransportUnitPrice: price.String()}, "transport price of facility %d is %s", id, price)
}

type vehicleResponse struct {
	OperatorID        int64  `json:"operatorId"`
	VehicleIdentifier string `json:"vehicleIdentifier"`
}

func (s *Server) epVehicle(req *http.Request) Result {
	id := RequireIDParam(req)
	vehicle := s.tr.VehicleIdentifier(id)

	return OK(vehicleResponse{OperatorID: id, VehicleIdentifier: vehicle}, "vehicle of operator %d is %q", id, vehicle)
}
