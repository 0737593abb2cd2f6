package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/auth"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger      handler.DBPinger
	Version       string
	OpenAPISpec   []byte
	Authenticator middleware.Authenticator

	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Teams         *handler.TeamHandler
	Projects      *handler.ProjectHandler
	Sprints       *handler.SprintHandler
	Tasks         *handler.TaskHandler
	Reports       *handler.ReportHandler
	Leave         *handler.LeaveHandler
	Announcements *handler.AnnouncementHandler
	Notifications *handler.NotificationHandler
	Assistant     *handler.AssistantHandler
	Dashboard     *handler.DashboardHandler
	Export        *handler.ExportHandler
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	r.Post("/auth/login", deps.Auth.Login)

	managers := middleware.RequireRole(auth.RoleAdmin, auth.RoleManager)
	admins := middleware.RequireRole(auth.RoleAdmin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator))

		r.Get("/me", deps.Auth.Me)
		r.Post("/me/password", deps.Auth.ChangePassword)
		r.Get("/dashboard", deps.Dashboard.ServeHTTP)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", deps.Users.List)
			r.Get("/{id}", deps.Users.GetByID)
			r.With(admins).Post("/", deps.Users.Create)
			r.With(admins).Patch("/{id}", deps.Users.Update)
			r.With(admins).Delete("/{id}", deps.Users.Deactivate)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", deps.Teams.List)
			r.With(managers).Post("/", deps.Teams.Create)
			r.With(managers).Patch("/{id}", deps.Teams.Rename)
			r.With(managers).Delete("/{id}", deps.Teams.Delete)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", deps.Projects.List)
			r.With(managers).Post("/", deps.Projects.Create)
			r.Get("/{id}", deps.Projects.GetByID)
			r.With(managers).Patch("/{id}", deps.Projects.Update)
			r.Get("/{id}/members", deps.Projects.Members)
			r.With(managers).Post("/{id}/members", deps.Projects.Assign)
			r.With(managers).Delete("/{id}/members/{userId}", deps.Projects.Unassign)
			r.Get("/{id}/sprints", deps.Sprints.ListByProject)
			r.With(managers).Post("/{id}/sprints", deps.Sprints.Create)
		})

		r.Route("/sprints/{id}", func(r chi.Router) {
			r.Get("/", deps.Sprints.GetByID)
			r.Get("/burndown", deps.Sprints.Burndown)
			r.With(managers).Patch("/", deps.Sprints.Update)
			r.With(managers).Post("/start", deps.Sprints.Start)
			r.With(managers).Post("/complete", deps.Sprints.Complete)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", deps.Tasks.List)
			r.Post("/", deps.Tasks.Create)
			r.Get("/{id}", deps.Tasks.GetByID)
			r.Patch("/{id}", deps.Tasks.Update)
			r.Delete("/{id}", deps.Tasks.Delete)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", deps.Reports.List)
			r.Post("/", deps.Reports.Submit)
			r.Put("/{id}", deps.Reports.Edit)
			r.With(managers).Get("/missing", deps.Reports.Missing)
			r.With(managers).Get("/blockers", deps.Reports.Blockers)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Get("/", deps.Leave.List)
			r.Post("/", deps.Leave.Request)
			r.Get("/mine", deps.Leave.Mine)
			r.Get("/availability", deps.Leave.Availability)
			r.Get("/out", deps.Leave.WhoIsOut)
			r.Post("/{id}/cancel", deps.Leave.Cancel)
			r.With(managers).Post("/{id}/review", deps.Leave.Review)
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", deps.Announcements.List)
			r.With(managers).Post("/", deps.Announcements.Create)
			r.Get("/unread-count", deps.Announcements.UnreadCount)
			r.Post("/{id}/read", deps.Announcements.MarkRead)
			r.Delete("/{id}", deps.Announcements.Delete)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", deps.Notifications.List)
			r.Get("/unread-count", deps.Notifications.UnreadCount)
			r.Get("/stream", deps.Notifications.Stream)
			r.Post("/read-all", deps.Notifications.MarkAllRead)
			r.Post("/{id}/read", deps.Notifications.MarkRead)
		})

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/ask", deps.Assistant.Ask)
			r.Get("/history", deps.Assistant.History)
			r.Delete("/history", deps.Assistant.ClearHistory)
		})

		r.Route("/export", func(r chi.Router) {
			r.Use(managers)
			r.Get("/reports", deps.Export.Reports)
			r.Get("/leave", deps.Export.Leave)
		})
	})

	return r
}
