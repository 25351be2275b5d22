package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"conferencehub/internal/delivery/http/helpers"
	"conferencehub/internal/domain"
)

// The admission pipeline for conference routes. Each stage either attaches
// state to the request context and calls through, or writes a response and
// halts the chain. Handlers behind these stages never observe an archived
// conference: it is either absent or guaranteed active.

// LoadConference fetches the conference named in the path and attaches it to
// the request context. Absence is not an error here: the request continues
// with no conference attached and later stages decide what that means. Only
// a collaborator failure halts the chain (500).
func LoadConference(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return load(conferences.Get, logger)
}

// LoadConferenceWithMembers is LoadConference with the member list populated.
func LoadConferenceWithMembers(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return load(conferences.GetWithMembers, logger)
}

func load(fetch func(context.Context, string) (*domain.Conference, error), logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := r.PathValue("conferenceID")
			if id == "" {
				next(w, r)
				return
			}
			conference, err := fetch(r.Context(), id)
			if err != nil {
				if err == domain.ErrNotFound {
					next(w, r)
					return
				}
				logger.ErrorContext(r.Context(), "load conference", "conference", id, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "load conference", err.Error())
				return
			}
			next(w, r.WithContext(SetConference(r.Context(), conference)))
		}
	}
}

// LazyArchive archives a conference that is no longer active as a side effect
// of reading it. In pre-load mode (creation-style endpoints) it resolves the
// conference by path id itself; in post-load mode it inspects the conference
// already attached by LoadConference and, after a successful archive, detaches
// it so downstream handlers see it as absent.
//
// A fetch or activity-check failure falls through to the next stage; only a
// failed archive halts the chain with 500. Keep it that way: the gate must
// not mask unrelated errors, but it must never expose a stale conference it
// knows it failed to archive.
func LazyArchive(conferences domain.ConferenceService, logger *slog.Logger, preLoad bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var conference *domain.Conference
			if preLoad {
				id := r.PathValue("conferenceID")
				if id == "" {
					next(w, r)
					return
				}
				c, err := conferences.Get(r.Context(), id)
				if err != nil || c == nil {
					next(w, r)
					return
				}
				conference = c
			} else {
				c, ok := ConferenceFromContext(r.Context())
				if !ok {
					next(w, r)
					return
				}
				conference = c
			}

			active, err := conferences.IsActive(r.Context(), conference)
			if err != nil || active {
				next(w, r)
				return
			}

			if err := conferences.Archive(r.Context(), conference); err != nil {
				logger.ErrorContext(r.Context(), "archive conference", "conference", conference.ID, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "archive conference", err.Error())
				return
			}
			logger.InfoContext(r.Context(), "conference archived", "conference", conference.ID)
			if !preLoad {
				next(w, r.WithContext(SetConference(r.Context(), nil)))
				return
			}
			next(w, r)
		}
	}
}

// RequireConference halts with 400 unless a conference is attached to the
// request. Used on routes whose subject must have been loaded.
func RequireConference() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ConferenceFromContext(r.Context()); !ok {
				helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "conference is missing from request")
				return
			}
			next(w, r)
		}
	}
}

// predicate is an asynchronous yes/no/error question about a
// (conference, user) pair.
type predicate func(ctx context.Context, conference *domain.Conference, user *domain.User) (bool, error)

// guard builds the common authorization stage: 400 when the user or the
// conference is missing (the collaborator is never called), 500 when the
// predicate fails, 403 when it denies, call through when it allows.
func guard(name string, check predicate, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			conference, user, ok := requireConferenceAndUser(w, r)
			if !ok {
				return
			}
			allowed, err := check(r.Context(), conference, user)
			if err != nil {
				logger.ErrorContext(r.Context(), name, "conference", conference.ID, "user", user.ID, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, name, err.Error())
				return
			}
			if !allowed {
				helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
				return
			}
			next(w, r)
		}
	}
}

func requireConferenceAndUser(w http.ResponseWriter, r *http.Request) (*domain.Conference, *domain.User, bool) {
	conference, okConference := ConferenceFromContext(r.Context())
	user, okUser := UserFromContext(r.Context())
	if !okConference || !okUser {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "user or conference is missing from request")
		return nil, nil, false
	}
	return conference, user, true
}

// CanJoin gates the join flow on the join-eligibility predicate.
func CanJoin(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return guard("can join conference", conferences.UserCanJoin, logger)
}

// IsAdmin restricts a route to the conference creator.
func IsAdmin(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return guard("is conference admin", conferences.UserIsCreator, logger)
}

// CanAddMember restricts adding members to users who already are members.
func CanAddMember(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return guard("can add member", conferences.UserIsMember, logger)
}

// CanAddAttendee allows the conference creator or an existing attendee to add
// attendees. The two predicates run strictly in order: a creator result
// short-circuits, and an error from the first predicate halts before the
// second is ever asked.
func CanAddAttendee(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	check := func(ctx context.Context, conference *domain.Conference, user *domain.User) (bool, error) {
		isCreator, err := conferences.UserIsCreator(ctx, conference, user)
		if err != nil {
			return false, err
		}
		if isCreator {
			return true, nil
		}
		return conferences.UserIsAttendee(ctx, conference, user)
	}
	return guard("can add attendee", check, logger)
}

// JoinOrCreate reconciles the requesting user against the conference named in
// the path: when the conference does not exist it is created with the user as
// sole creator member and the request is marked created; when it exists the
// user is added (idempotently) and the request's user is replaced with the
// canonical member form, which carries the persisted member id. Exactly one
// of the two outcomes happens per request.
func JoinOrCreate(conferences domain.ConferenceService, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			id := r.PathValue("conferenceID")
			if !ok || id == "" {
				helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "user or conference id is missing from request")
				return
			}

			conference, err := conferences.Get(r.Context(), id)
			if err != nil && err != domain.ErrNotFound {
				logger.ErrorContext(r.Context(), "get conference", "conference", id, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "get conference", err.Error())
				return
			}

			if conference == nil {
				created, err := conferences.Create(r.Context(), &domain.Conference{ID: id, CreatedBy: user.ID})
				if err != nil {
					logger.ErrorContext(r.Context(), "create conference", "conference", id, "err", err)
					helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "create conference", err.Error())
					return
				}
				ctx := SetConference(r.Context(), created)
				ctx = SetCreated(ctx, true)
				next(w, r.WithContext(ctx))
				return
			}

			ctx := SetConference(r.Context(), conference)
			member := &domain.Member{UserID: user.ID, DisplayName: user.DisplayName, Role: domain.RoleAttendee}
			if err := conferences.AddMember(ctx, conference, member); err != nil {
				logger.ErrorContext(ctx, "add member", "conference", id, "user", user.ID, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "add member", err.Error())
				return
			}
			resolved, err := conferences.GetMember(ctx, conference, user)
			if err != nil {
				logger.ErrorContext(ctx, "get member", "conference", id, "user", user.ID, "err", err)
				helpers.WriteJSONErrorDetails(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "get member", err.Error())
				return
			}
			memberUser := *user
			memberUser.MemberID = resolved.ID
			if resolved.DisplayName != "" {
				memberUser.DisplayName = resolved.DisplayName
			}
			next(w, r.WithContext(SetUser(ctx, &memberUser)))
		}
	}
}
