package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/directory"
	"github.com/recordsdir/directory-backend/internal/metrics"
	"github.com/recordsdir/directory-backend/internal/models"
	"github.com/recordsdir/directory-backend/internal/search"
	"go.uber.org/zap"
)

const (
	defaultSortBy    = "name"
	defaultSortOrder = "asc"

	maxBodyBytes = 1 << 20
)

// MetricsInterface defines the interface for metrics recording
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	RecordDirectoryOp(ctx context.Context, op, outcome string)
}

// CountryDirectory is the country half of the directory core
type CountryDirectory interface {
	AddCountry(ctx context.Context, req *models.CountryAddRequest) (*models.CountryView, error)
	GetAllCountries(ctx context.Context) ([]models.CountryView, error)
	GetCountryByID(ctx context.Context, id uuid.UUID) (*models.CountryView, error)
}

// PersonDirectory is the person half of the directory core
type PersonDirectory interface {
	AddPerson(ctx context.Context, req *models.PersonAddRequest) (*models.PersonView, error)
	GetPersonByID(ctx context.Context, id uuid.UUID) (*models.PersonView, error)
	GetAllPersons(ctx context.Context) ([]models.PersonView, error)
	GetFilteredPersons(ctx context.Context, field search.Field, text string) ([]models.PersonView, error)
	GetSortedPersons(persons []models.PersonView, field search.Field, order search.Order) []models.PersonView
	UpdatePerson(ctx context.Context, req *models.PersonUpdateRequest) (*models.PersonView, error)
	DeletePerson(ctx context.Context, id uuid.UUID) (bool, error)
}

// HealthChecker reports whether a dependency can serve requests
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type Handler struct {
	countries CountryDirectory
	persons   PersonDirectory
	storage   HealthChecker
	logger    *zap.SugaredLogger
	metrics   MetricsInterface
}

func NewHandler(
	countries CountryDirectory,
	persons PersonDirectory,
	storage HealthChecker,
	logger *zap.SugaredLogger,
	metrics MetricsInterface,
) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		countries: countries,
		persons:   persons,
		storage:   storage,
		logger:    logger,
		metrics:   metrics,
	}
}

// Countries

func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.countries.GetAllCountries(r.Context())
	h.recordOp(r.Context(), "list_countries", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CountryListDTO{Countries: countries})
}

func (h *Handler) CreateCountry(w http.ResponseWriter, r *http.Request) {
	var req *models.CountryAddRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	country, err := h.countries.AddCountry(r.Context(), req)
	h.recordOp(r.Context(), "add_country", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Infow("Country added", "request_id", middleware.GetReqID(r.Context()), "id", country.ID, "name", country.Name)
	h.writeJSON(w, http.StatusCreated, country)
}

func (h *Handler) GetCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "countryID")
	if !ok {
		return
	}

	country, err := h.countries.GetCountryByID(r.Context(), id)
	if err == nil && country == nil {
		err = directory.ErrNotFound
	}
	h.recordOp(r.Context(), "get_country", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, country)
}

// Persons

// ListPersons filters on searchBy/searchString, then sorts on sortBy/sortOrder.
// Unknown field names leave the listing unfiltered or unsorted.
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := PersonListRequest{
		SearchBy:     q.Get("searchBy"),
		SearchString: q.Get("searchString"),
		SortBy:       q.Get("sortBy"),
		SortOrder:    q.Get("sortOrder"),
	}
	if req.SortBy == "" {
		req.SortBy = defaultSortBy
	}
	if req.SortOrder == "" {
		req.SortOrder = defaultSortOrder
	}

	order := search.ParseOrder(req.SortOrder)
	filtered, err := h.persons.GetFilteredPersons(r.Context(), search.ParseField(req.SearchBy), req.SearchString)
	h.recordOp(r.Context(), "list_persons", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	sorted := h.persons.GetSortedPersons(filtered, search.ParseField(req.SortBy), order)
	if sorted == nil {
		sorted = []models.PersonView{}
	}

	fields := make([]SearchFieldDTO, len(search.SearchFields))
	for i, f := range search.SearchFields {
		fields[i] = SearchFieldDTO{Field: f.Field.String(), Label: f.Label}
	}

	h.writeJSON(w, http.StatusOK, PersonListDTO{
		SearchBy:     req.SearchBy,
		SearchString: req.SearchString,
		SortBy:       req.SortBy,
		SortOrder:    order.String(),
		Persons:      sorted,
		SearchFields: fields,
	})
}

func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req *models.PersonAddRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	person, err := h.persons.AddPerson(r.Context(), req)
	h.recordOp(r.Context(), "add_person", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Infow("Person added", "request_id", middleware.GetReqID(r.Context()), "id", person.ID)
	h.writeJSON(w, http.StatusCreated, person)
}

func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "personID")
	if !ok {
		return
	}

	person, err := h.persons.GetPersonByID(r.Context(), id)
	if err == nil && person == nil {
		err = directory.ErrNotFound
	}
	h.recordOp(r.Context(), "get_person", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, person)
}

// UpdatePerson takes the person id from the path; an id in the body is ignored
func (h *Handler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "personID")
	if !ok {
		return
	}

	var req *models.PersonUpdateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req != nil {
		req.ID = id
	}

	person, err := h.persons.UpdatePerson(r.Context(), req)
	h.recordOp(r.Context(), "update_person", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Infow("Person updated", "request_id", middleware.GetReqID(r.Context()), "id", person.ID)
	h.writeJSON(w, http.StatusOK, person)
}

func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "personID")
	if !ok {
		return
	}

	deleted, err := h.persons.DeletePerson(r.Context(), id)
	if err == nil && !deleted {
		err = directory.ErrNotFound
	}
	h.recordOp(r.Context(), "delete_person", err)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Infow("Person deleted", "request_id", middleware.GetReqID(r.Context()), "id", id)
	h.writeJSON(w, http.StatusOK, DeleteDTO{ID: id.String(), Deleted: true})
}

// Health and ops endpoints
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.storage != nil && !h.storage.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("STORAGE UNAVAILABLE"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// Utility methods

// decodeBody reads a JSON body into dst. An empty body leaves dst nil so the
// directory reports the missing request itself.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("%s must be a UUID", param), raw)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps directory errors onto HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation directory.ValidationErrors
	var single *directory.ValidationError

	switch {
	case errors.As(err, &validation):
		h.writeJSONError(w, http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_FAILED",
			Message: validation.First().Message,
			Details: validation.Error(),
			Fields:  validation,
		})
	case errors.As(err, &single):
		h.writeJSONError(w, http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_FAILED",
			Message: single.Message,
			Details: single.Error(),
			Fields:  []*directory.ValidationError{single},
		})
	case errors.Is(err, directory.ErrNullRequest), errors.Is(err, directory.ErrNullArgument):
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
	case errors.Is(err, directory.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", err.Error())
	case errors.Is(err, directory.ErrDuplicateKey):
		h.writeError(w, http.StatusConflict, "DUPLICATE", err.Error(), "")
	default:
		h.logger.Errorw("Directory operation failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", "")
	}
}

func (h *Handler) recordOp(ctx context.Context, op string, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordDirectoryOp(ctx, op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, directory.ErrInvalidArgument),
		errors.Is(err, directory.ErrNullRequest),
		errors.Is(err, directory.ErrNullArgument):
		return metrics.OutcomeInvalid
	case errors.Is(err, directory.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, directory.ErrDuplicateKey):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSONError(w, status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func (h *Handler) writeJSONError(w http.ResponseWriter, status int, resp ErrorResponse) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("API error", "code", resp.Code, "message", resp.Message, "status", status)
	} else {
		h.logger.Infow("API error", "code", resp.Code, "message", resp.Message, "status", status)
	}
	h.writeJSON(w, status, resp)
}
