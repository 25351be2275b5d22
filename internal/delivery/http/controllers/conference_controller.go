package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"conferencehub/internal/delivery/http/helpers"
	"conferencehub/internal/delivery/http/middleware"
	"conferencehub/internal/domain"
)

// ConferenceController handles conference and member endpoints. The admission
// middleware does the heavy lifting: by the time a handler runs, the
// conference (when present) is loaded, active, and the caller is authorized.
type ConferenceController struct {
	Logger  *slog.Logger
	Service domain.ConferenceService
}

// NewConferenceController creates a ConferenceController with the given logger and service.
func NewConferenceController(logger *slog.Logger, svc domain.ConferenceService) *ConferenceController {
	return &ConferenceController{
		Logger:  logger,
		Service: svc,
	}
}

// GetConferenceSuccessResponse is the success response envelope for GET /conferences/{conferenceID} (200).
type GetConferenceSuccessResponse struct {
	Data  *domain.Conference `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// Get godoc
// @Summary Get a conference
// @Description Returns the conference with the given id. Archived conferences are reported as not found; reading a conference that has gone inactive archives it first.
// @Tags conferences
// @Produce json
// @Param conferenceID path string true "Conference ID (room name)"
// @Success 200 {object} controllers.GetConferenceSuccessResponse "data contains the conference"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID} [get]
func (c *ConferenceController) Get(w http.ResponseWriter, r *http.Request) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "conference not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, conference)
}

// CreateOrJoinSuccessResponse is the success response envelope for PUT /conferences/{conferenceID} and POST /conferences/{conferenceID}/join (200 or 201).
type CreateOrJoinSuccessResponse struct {
	Data  CreateOrJoinResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// CreateOrJoinResponse carries the reconciled conference and the caller's
// member form after a create-or-join request.
type CreateOrJoinResponse struct {
	Conference *domain.Conference `json:"conference"`
	User       *domain.User       `json:"user"`
}

// CreateOrJoin godoc
// @Summary Create or join a conference
// @Description Claims the conference id for the authenticated user. Returns 201 when the conference was created with the caller as creator, 200 when it already existed and the caller was added (idempotently) as a member.
// @Tags conferences
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID (room name)"
// @Success 200 {object} controllers.CreateOrJoinSuccessResponse "Joined an existing conference"
// @Success 201 {object} controllers.CreateOrJoinSuccessResponse "Conference created"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID} [put]
func (c *ConferenceController) CreateOrJoin(w http.ResponseWriter, r *http.Request) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "conference is missing from request")
		return
	}
	user, _ := middleware.UserFromContext(r.Context())

	status := http.StatusOK
	if middleware.CreatedFromContext(r.Context()) {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, CreateOrJoinResponse{Conference: conference, User: user})
}

// ListMembersResponse is the data payload for GET /conferences/{conferenceID}/members.
type ListMembersResponse struct {
	Members    []*domain.Member       `json:"members"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListMembersSuccessResponse is the success response envelope for GET /conferences/{conferenceID}/members (200).
type ListMembersSuccessResponse struct {
	Data  ListMembersResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ListMembers godoc
// @Summary List conference members
// @Description Returns the members of the conference, paginated by page and page_size query parameters.
// @Tags conferences
// @Produce json
// @Param conferenceID path string true "Conference ID (room name)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListMembersSuccessResponse "data contains members and pagination metadata"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID}/members [get]
func (c *ConferenceController) ListMembers(w http.ResponseWriter, r *http.Request) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "conference not found")
		return
	}

	p := helpers.ParsePagination(r)
	members, total, err := c.Service.ListMembers(r.Context(), conference, p)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if members == nil {
		members = []*domain.Member{}
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, ListMembersResponse{
		Members:    members,
		Pagination: helpers.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}

// AddMembersRequest is the request body for PUT /conferences/{conferenceID}/members.
type AddMembersRequest struct {
	Members []AddMemberItem `json:"members"`
}

// AddMemberItem is one member to add.
type AddMemberItem struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Validate implements helpers.Validator.
func (a AddMembersRequest) Validate() []string {
	var errs []string
	if len(a.Members) == 0 {
		errs = append(errs, "members is required")
	}
	for i, m := range a.Members {
		if strings.TrimSpace(m.UserID) == "" {
			errs = append(errs, "members["+strconv.Itoa(i)+"].user_id is required")
		}
	}
	return errs
}

// AddMembers godoc
// @Summary Add members to a conference
// @Description Adds the given users as plain members. Adding a user who is already a member is a no-op. Only existing members may add members.
// @Tags conferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID (room name)"
// @Param body body controllers.AddMembersRequest true "Members to add"
// @Success 204 "Members added"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID}/members [put]
func (c *ConferenceController) AddMembers(w http.ResponseWriter, r *http.Request) {
	c.addMembers(w, r, domain.RoleMember)
}

// AddAttendees godoc
// @Summary Add attendees to a conference
// @Description Adds the given users as attendees. Only the creator or an existing attendee may add attendees.
// @Tags conferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID (room name)"
// @Param body body controllers.AddMembersRequest true "Attendees to add"
// @Success 204 "Attendees added"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID}/attendees [put]
func (c *ConferenceController) AddAttendees(w http.ResponseWriter, r *http.Request) {
	c.addMembers(w, r, domain.RoleAttendee)
}

func (c *ConferenceController) addMembers(w http.ResponseWriter, r *http.Request, role string) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "conference is missing from request")
		return
	}
	var req AddMembersRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	for _, m := range req.Members {
		member := &domain.Member{
			UserID:      strings.TrimSpace(m.UserID),
			DisplayName: strings.TrimSpace(m.DisplayName),
			Role:        role,
		}
		if err := c.Service.AddMember(r.Context(), conference, member); err != nil {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMemberFieldRequest is the request body for PUT /conferences/{conferenceID}/members/{memberID}/{field}.
type UpdateMemberFieldRequest struct {
	Value string `json:"value"`
}

// Validate implements helpers.Validator.
func (u UpdateMemberFieldRequest) Validate() []string {
	if strings.TrimSpace(u.Value) == "" {
		return []string{"value is required"}
	}
	return nil
}

// UpdateMemberFieldSuccessResponse is the success response envelope for PUT /conferences/{conferenceID}/members/{memberID}/{field} (200).
type UpdateMemberFieldSuccessResponse struct {
	Data  *domain.Member    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UpdateMemberField godoc
// @Summary Update a member field
// @Description Updates one whitelisted field of a conference member. Only "displayname" is updatable.
// @Tags conferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID (room name)"
// @Param memberID path string true "Member ID"
// @Param field path string true "Field name (only \"displayname\")"
// @Param body body controllers.UpdateMemberFieldRequest true "New value"
// @Success 200 {object} controllers.UpdateMemberFieldSuccessResponse "data contains the updated member"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID}/members/{memberID}/{field} [put]
func (c *ConferenceController) UpdateMemberField(w http.ResponseWriter, r *http.Request) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "conference is missing from request")
		return
	}
	memberID := r.PathValue("memberID")
	field := r.PathValue("field")
	if memberID == "" || field == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing memberID or field")
		return
	}
	var req UpdateMemberFieldRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	member, err := c.Service.UpdateMemberField(r.Context(), conference, memberID, field, strings.TrimSpace(req.Value))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "field cannot be updated: "+field)
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "member not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, member)
}

// Archive godoc
// @Summary Archive a conference
// @Description Archives the conference. Only the creator may archive. Idempotent at the storage layer.
// @Tags conferences
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID (room name)"
// @Success 204 "Conference archived"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID} [delete]
func (c *ConferenceController) Archive(w http.ResponseWriter, r *http.Request) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "conference is missing from request")
		return
	}

	if err := c.Service.Archive(r.Context(), conference); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Join godoc
// @Summary Join a conference
// @Description Joins the authenticated user to the conference as an attendee, subject to the join policy (existing members always may; new members only while the conference has room).
// @Tags conferences
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID (room name)"
// @Success 200 {object} controllers.CreateOrJoinSuccessResponse "data contains the conference and the caller's member form"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /conferences/{conferenceID}/join [post]
func (c *ConferenceController) Join(w http.ResponseWriter, r *http.Request) {
	conference, ok := middleware.ConferenceFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "conference is missing from request")
		return
	}
	user, _ := middleware.UserFromContext(r.Context())

	helpers.WriteJSONSuccess(w, http.StatusOK, CreateOrJoinResponse{Conference: conference, User: user})
}
