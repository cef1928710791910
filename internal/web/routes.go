package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/staff-attendance/internal/web/handlers"
	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
	"github.com/kozaktomas/staff-attendance/internal/web/static"
)

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.config, s.sessionManager)
	staffHandler := handlers.NewStaffHandler(s.service, s.identities)
	attendanceHandler := handlers.NewAttendanceHandler(s.service, s.attendance)
	settingsHandler := handlers.NewSettingsHandler(s.service)
	holidayHandler := handlers.NewHolidayHandler(s.service)
	configHandler := handlers.NewConfigHandler(s.config, s.service)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Kiosk endpoints are public
		r.Get("/attendance/window", attendanceHandler.Window)
		r.Post("/attendance/recognize", attendanceHandler.Recognize)
		r.Post("/attendance/mark", attendanceHandler.Mark)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			// Staff
			r.Get("/staff", staffHandler.List)
			r.Post("/staff", staffHandler.Enroll)
			r.Post("/staff/reload", staffHandler.Reload)
			r.Get("/staff/{id}", staffHandler.Get)
			r.Delete("/staff/{id}", staffHandler.Delete)

			// Attendance log
			r.Get("/attendance", attendanceHandler.List)
			r.Get("/attendance/dates", attendanceHandler.Dates)
			r.Get("/attendance/stats", attendanceHandler.Stats)
			r.Get("/attendance/export", attendanceHandler.Export)

			// Settings
			r.Get("/settings/threshold", settingsHandler.GetThreshold)
			r.Put("/settings/threshold", settingsHandler.UpdateThreshold)
			r.Get("/settings/window", settingsHandler.GetWindow)
			r.Put("/settings/window", settingsHandler.UpdateWindow)
			r.Get("/settings/holidays", holidayHandler.List)
			r.Post("/settings/holidays", holidayHandler.Create)
			r.Delete("/settings/holidays/{date}", holidayHandler.Delete)

			r.Get("/config", configHandler.Get)
		})
	})

	s.router.Handle("/*", static.Handler())
}
