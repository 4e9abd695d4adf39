package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/weighted-membership-registry/api"
	"github.com/ruteri/weighted-membership-registry/identity"
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/ruteri/weighted-membership-registry/registry"
)

// MaxHistoryLimit caps the limit query parameter of the history route.
const MaxHistoryLimit = 1000

// Observer receives per-request measurements.
type Observer interface {
	ObserveOperation(operation string, status int, took time.Duration)
	SetRegistries(n int)
}

// Handler serves the registry API.
type Handler struct {
	service  *registry.Service
	observer Observer
	log      *slog.Logger
}

// NewHandler creates a handler for service. observer may be nil.
func NewHandler(service *registry.Service, observer Observer, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		observer: observer,
		log:      log,
	}
}

// RegisterRoutes mounts the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/registries", h.route("create", h.HandleCreate))
	r.Get("/api/registries", h.route("list", h.HandleList))
	r.Get("/api/registries/{registry}/admin", h.route("get_admin", h.HandleGetAdmin))
	r.Get("/api/registries/{registry}/members", h.route("get_members", h.HandleGetMembers))
	r.Get("/api/registries/{registry}/members/{member}", h.route("get_member", h.HandleGetMember))
	r.Get("/api/registries/{registry}/total_weight", h.route("get_total_weight", h.HandleGetTotalWeight))
	r.Get("/api/registries/{registry}/history", h.route("history", h.HandleHistory))
	r.Post("/api/registries/{registry}/admin", h.route("update_admin", h.HandleUpdateAdmin))
	r.Post("/api/registries/{registry}/members", h.route("update_members", h.HandleUpdateMembers))
}

// apiFunc returns the response status and body, or an error.
type apiFunc func(r *http.Request) (int, any, error)

func (h *Handler) route(operation string, fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		status, body, err := fn(r)
		if err != nil {
			var resp *api.ErrorResponse
			status, resp = api.NewErrorResponse(err)
			body = resp

			logLevel := slog.LevelWarn
			if status >= http.StatusInternalServerError {
				logLevel = slog.LevelError
			}
			h.log.Log(r.Context(), logLevel, "Request failed",
				slog.String("operation", operation),
				slog.Int("status", status),
				"err", err)
		}

		writeJSON(w, status, body)

		if h.observer != nil {
			h.observer.ObserveOperation(operation, status, time.Since(start))
		}
	}
}

// HandleCreate constructs a registry administered by the signer unless the
// body names another admin.
//
// URL format: POST /api/registries
//
// Status codes:
//   - 201 Created: registry created, body is api.MutationResponse
//   - 400 Bad Request: empty or duplicate members, overflow, malformed body
//   - 401 Unauthorized: missing or invalid signature
func (h *Handler) HandleCreate(r *http.Request) (int, any, error) {
	caller, body, err := h.authenticate(r)
	if err != nil {
		return 0, nil, err
	}

	var req api.CreateRequest
	if err := decodeStrict(body, &req); err != nil {
		return 0, nil, err
	}

	res, err := h.service.Create(r.Context(), caller, req.Admin, req.Members)
	if err != nil {
		return 0, nil, err
	}

	if h.observer != nil {
		h.observer.SetRegistries(len(h.service.Registries()))
	}

	return http.StatusCreated, api.NewMutationResponse(res), nil
}

// HandleList returns the addresses of all hosted registries.
func (h *Handler) HandleList(r *http.Request) (int, any, error) {
	return http.StatusOK, &api.RegistriesResponse{Registries: h.service.Registries()}, nil
}

func (h *Handler) HandleGetAdmin(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}

	admin, seq, err := h.service.AdminAt(id)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, &api.AdminResponse{Admin: admin, Sequence: seq}, nil
}

func (h *Handler) HandleGetMembers(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}

	members, seq, err := h.service.MembersAt(id)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, &api.MembersResponse{Members: members, Sequence: seq}, nil
}

// HandleGetMember returns one member, or 404 with code no_member.
func (h *Handler) HandleGetMember(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}
	addr, err := addressParam(r, "member")
	if err != nil {
		return 0, nil, err
	}

	member, err := h.service.Member(id, addr)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, &member, nil
}

func (h *Handler) HandleGetTotalWeight(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}

	total, seq, err := h.service.TotalWeightAt(id)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, &api.TotalWeightResponse{TotalWeight: total, Sequence: seq}, nil
}

// HandleHistory returns the snapshot chain of a registry, newest first.
// The optional limit query parameter defaults to registry.DefaultHistoryLimit.
func (h *Handler) HandleHistory(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}

	limit := registry.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > MaxHistoryLimit {
			return 0, nil, fmt.Errorf("%w: limit must be between 1 and %d", api.ErrBadRequest, MaxHistoryLimit)
		}
	}

	snapshots, err := h.service.History(r.Context(), id, limit)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, &api.HistoryResponse{Snapshots: snapshots}, nil
}

// HandleUpdateAdmin transfers the admin role. Only the current admin may sign it.
//
// URL format: POST /api/registries/{registry}/admin
//
// Status codes:
//   - 200 OK: body is api.MutationResponse
//   - 400 Bad Request: malformed body, body registry differs from the path,
//     or expected_sequence is missing
//   - 401 Unauthorized: missing or invalid signature
//   - 403 Forbidden: signer is not the admin
//   - 404 Not Found: unknown registry
//   - 409 Conflict: expected_sequence does not match
func (h *Handler) HandleUpdateAdmin(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}

	caller, body, err := h.authenticate(r)
	if err != nil {
		return 0, nil, err
	}

	var req api.UpdateAdminRequest
	if err := decodeStrict(body, &req); err != nil {
		return 0, nil, err
	}
	if err := checkBinding(id, req.Registry, req.ExpectedSequence); err != nil {
		return 0, nil, err
	}

	res, err := h.service.UpdateAdmin(r.Context(), id, caller, req.NewAdmin, req.ExpectedSequence)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, api.NewMutationResponse(res), nil
}

// HandleUpdateMembers applies a batch update: upserts first, then removals.
// Status codes are those of HandleUpdateAdmin, plus 400 for duplicate
// upserts, overflow, or a batch that would remove every member.
func (h *Handler) HandleUpdateMembers(r *http.Request) (int, any, error) {
	id, err := addressParam(r, "registry")
	if err != nil {
		return 0, nil, err
	}

	caller, body, err := h.authenticate(r)
	if err != nil {
		return 0, nil, err
	}

	var req api.UpdateMembersRequest
	if err := decodeStrict(body, &req); err != nil {
		return 0, nil, err
	}
	if err := checkBinding(id, req.Registry, req.ExpectedSequence); err != nil {
		return 0, nil, err
	}

	res, err := h.service.UpdateMembers(r.Context(), id, caller, req.Upserts, req.Removals, req.ExpectedSequence)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, api.NewMutationResponse(res), nil
}

// authenticate reads the body and verifies its signature.
func (h *Handler) authenticate(r *http.Request) (interfaces.Address, []byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxBodySize+1))
	if err != nil {
		return interfaces.Address{}, nil, fmt.Errorf("%w: failed to read body: %v", api.ErrBadRequest, err)
	}
	if len(body) > api.MaxBodySize {
		return interfaces.Address{}, nil, fmt.Errorf("%w: body exceeds %d bytes", api.ErrBadRequest, api.MaxBodySize)
	}

	caller, err := identity.CallerFromRequest(r, body)
	if err != nil {
		return interfaces.Address{}, nil, err
	}

	return caller, body, nil
}

// checkBinding verifies that a signed mutation body names the path registry
// and the sequence it was signed against. A body valid at one sequence is
// rejected with a sequence mismatch once the registry has moved on.
func checkBinding(id, bodyRegistry interfaces.Address, expectedSeq *uint64) error {
	if bodyRegistry != id {
		return fmt.Errorf("%w: signed request targets registry %s", api.ErrBadRequest, bodyRegistry)
	}
	if expectedSeq == nil {
		return fmt.Errorf("%w: expected_sequence is required", api.ErrBadRequest)
	}
	return nil
}

func addressParam(r *http.Request, name string) (interfaces.Address, error) {
	addr, err := interfaces.NewAddressFromHex(chi.URLParam(r, name))
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("%w: invalid %s address: %v", api.ErrBadRequest, name, err)
	}
	return addr, nil
}

func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", api.ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", api.ErrBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
