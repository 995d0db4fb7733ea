package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Middleware wraps an http.Handler.
type Middleware func(next http.Handler) http.Handler

type mwFunc http.HandlerFunc

func (sf mwFunc) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	sf(w, req)
}

type ctxKey int

const ctxRequestID ctxKey = iota

// RequestIDHeader is the header that carries the ID of a request. An ID sent
// by the client is kept; otherwise a new one is generated.
const RequestIDHeader = "X-Request-ID"

var paramTypePats = map[string]string{
	"uuid":     `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
	"num":      `\d+`,
	"alpha":    `[A-Za-z]+`,
	"alphanum": `[A-Za-z0-9]+`,
}

// PathParam translates strings of the form "name:type" to a URI path parameter
// string of the form "{name:regex}" that chi understands. Only request URIs
// whose path parameters match their respective regexes will match that route.
//
// If only name is given in the string (with no colon), then the string
// "{" + name + "}" is returned.
func PathParam(nameType string) string {
	var pat string

	parts := strings.SplitN(nameType, ":", 2)
	name := parts[0]
	if len(parts) == 2 {
		pat = parts[1]
		if translatedPat, ok := paramTypePats[parts[1]]; ok {
			pat = translatedPat
		}
	}

	if pat == "" {
		return "{" + name + "}"
	}
	return "{" + name + ":" + pat + "}"
}

// RequestID returns the ID assigned to req by the request ID middleware, or
// the empty string if there is none.
func RequestID(req *http.Request) string {
	id, _ := req.Context().Value(ctxRequestID).(string)
	return id
}

// AssignRequestID returns a Middleware that gives every request an ID, stores
// it in the request context and echoes it in the RequestIDHeader of the
// response.
func AssignRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return mwFunc(func(w http.ResponseWriter, req *http.Request) {
			id := strings.TrimSpace(req.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(req.Context(), ctxRequestID, id)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// DontPanic returns a Middleware that performs a panic check as it exits. If
// the function is panicking, it will write out an HTTP response with a generic
// message to the client and add it to the log.
func (s *Server) DontPanic() Middleware {
	return func(next http.Handler) http.Handler {
		return mwFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if panicErr := recover(); panicErr != nil {
					r := TextErr(
						http.StatusInternalServerError,
						"An internal server error occurred",
						fmt.Sprintf("panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack())),
					)
					r.WriteResponse(w)
					s.LogResult(req, r)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

// ParseJSONRequest decodes the JSON body of req into v, which must be a
// pointer. A missing JSON content type or malformed body gives an error
// wrapping canetrack.ErrValidationFailed.
func ParseJSONRequest(req *http.Request, v interface{}) error {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || strings.ToLower(mediaType) != "application/json" {
		return canetrack.NewError("request content-type is not application/json", canetrack.ErrValidationFailed)
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer func() {
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewBuffer(bodyData))
	}()

	dec := json.NewDecoder(bytes.NewReader(bodyData))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return canetrack.NewError("malformed JSON in request", err, canetrack.ErrValidationFailed)
	}

	return nil
}

// GetURLParam parses the chi URL parameter key of r with parse.
func GetURLParam[E any](r *http.Request, key string, parse func(string) (E, error)) (val E, err error) {
	valStr := chi.URLParam(r, key)
	if valStr == "" {
		// either it does not exist or it is nil; treat both as the same and
		// return an error
		return val, fmt.Errorf("parameter does not exist")
	}

	val, err = parse(valStr)
	if err != nil {
		return val, canetrack.NewError(fmt.Sprintf("parameter %s", key), err, canetrack.ErrValidationFailed)
	}
	return val, nil
}

// RequireIDParam gets the ID of the main entity being referenced in the URI and
// returns it. It panics if the key is not there or is not parsable; routes
// restrict it to digits so that only an overflowing value can fail.
func RequireIDParam(r *http.Request) int64 {
	id, err := GetURLParam(r, "id", parseID)
	if err != nil {
		panic(err.Error())
	}
	return id
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// queryInt64 parses an optional integer query parameter. Absent gives 0.
func queryInt64(req *http.Request, key string) (int64, error) {
	s := req.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, canetrack.NewError(fmt.Sprintf("query %s: not an integer: %q", key, s), canetrack.ErrValidationFailed)
	}
	return v, nil
}

func queryInt(req *http.Request, key string) (int, error) {
	v, err := queryInt64(req, key)
	return int(v), err
}

// queryDate parses an optional date query parameter. Absent gives the zero
// time.
func queryDate(req *http.Request, key string) (time.Time, error) {
	s := req.URL.Query().Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, canetrack.NewError(fmt.Sprintf("query %s", key), err, canetrack.ErrValidationFailed)
	}
	return t, nil
}

// parseDate accepts a bare date or a full RFC 3339 timestamp and gives
// midnight UTC of the calendar day it names. A timestamp names the day in its
// own offset.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a date in YYYY-MM-DD or RFC 3339 format: %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
