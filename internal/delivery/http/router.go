package http

import (
	"log/slog"
	"net/http"

	"conferencehub/internal/delivery/http/controllers"
	"conferencehub/internal/delivery/http/middleware"
	"conferencehub/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes the HTTP router with all application routes. Every
// conference route runs behind the admission pipeline: load, lazy-archive,
// then the authorization guard the route needs.
func NewRouter(
	logger *slog.Logger,
	conferences domain.ConferenceService,
	verifier domain.TokenVerifier,
	users domain.UserLoader,
	conferenceController *controllers.ConferenceController,
	authController *controllers.AuthController,
) *http.ServeMux {
	mux := http.NewServeMux()

	load := middleware.LoadConference(conferences, logger)
	loadWithMembers := middleware.LoadConferenceWithMembers(conferences, logger)
	lazyArchive := middleware.LazyArchive(conferences, logger, false)
	lazyArchivePre := middleware.LazyArchive(conferences, logger, true)
	requireUser := middleware.RequireUser(verifier, users, logger)
	requireConference := middleware.RequireConference()
	joinOrCreate := middleware.JoinOrCreate(conferences, logger)

	// Conferences
	mux.HandleFunc("GET /conferences/{conferenceID}",
		load(lazyArchive(conferenceController.Get)))
	mux.HandleFunc("PUT /conferences/{conferenceID}",
		lazyArchivePre(requireUser(joinOrCreate(conferenceController.CreateOrJoin))))
	mux.HandleFunc("DELETE /conferences/{conferenceID}",
		load(lazyArchive(requireUser(
			middleware.IsAdmin(conferences, logger)(conferenceController.Archive)))))

	// Members
	mux.HandleFunc("GET /conferences/{conferenceID}/members",
		loadWithMembers(lazyArchive(conferenceController.ListMembers)))
	mux.HandleFunc("PUT /conferences/{conferenceID}/members",
		load(lazyArchive(requireUser(
			middleware.CanAddMember(conferences, logger)(conferenceController.AddMembers)))))
	mux.HandleFunc("PUT /conferences/{conferenceID}/attendees",
		load(lazyArchive(requireUser(
			middleware.CanAddAttendee(conferences, logger)(conferenceController.AddAttendees)))))
	mux.HandleFunc("PUT /conferences/{conferenceID}/members/{memberID}/{field}",
		load(lazyArchive(requireUser(requireConference(conferenceController.UpdateMemberField)))))

	// Join
	mux.HandleFunc("POST /conferences/{conferenceID}/join",
		load(lazyArchive(requireUser(
			middleware.CanJoin(conferences, logger)(joinOrCreate(conferenceController.Join))))))

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("POST /auth/login-code/request", authController.RequestLoginCode)
	mux.HandleFunc("POST /auth/login-code/verify", authController.VerifyLoginCode)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
