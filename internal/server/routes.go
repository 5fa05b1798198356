// Package server sets up the HTTP server and registers API routes for go-pdftools.
//
// RegisterRoutes returns an http.Handler with all API endpoints for sessions,
// document tools and layout previews.
//
// Expected outputs:
// - Session bound endpoints are available under /api/sessions
// - Stateless layout previews are available under /api/layout
// - CORS, request IDs, panic recovery and request logging are enabled
package server

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-pdftools/docs"
	"go-pdftools/internal/handlers"
)

// Only allow requests from localhost to /swagger/*
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	h := handlers.NewAPIHandler(s.Sessions, s.cfg, s.log)
	r.Route("/api/sessions", func(api chi.Router) {
		api.Post("/", h.CreateSession)
		api.Route("/{sessionID}", func(sr chi.Router) {
			sr.Delete("/", h.DeleteSession)

			sr.Post("/files", h.UploadFile)
			sr.Post("/sources", h.UploadSource)
			sr.Post("/signature", h.UploadSignature)
			sr.Put("/order", h.UpdateOrder)
			sr.Get("/files/{filename}", h.DownloadFile)
			sr.Post("/actions/merge", h.MergeFiles)

			sr.Get("/documents/{document}/metrics", h.PageMetrics)
			sr.Get("/documents/{document}/pages/{page}/preview", h.RenderPreview)

			sr.Get("/placement", h.PlacementState)
			sr.Delete("/placement", h.ResetPlacement)
			sr.Put("/placement/pages", h.SelectPages)
			sr.Post("/placement/goto", h.GoToPage)
			sr.Post("/placement/drag", h.RecordDrag)
			sr.Post("/placement/lock", h.LockPlacement)
			sr.Post("/sign", h.SignPDF)

			sr.Post("/watermark", h.AddWatermark)
			sr.Post("/crop", h.CropPDF)
			sr.Post("/edit", h.EditPDF)
			sr.Post("/redact/search", h.SearchText)
			sr.Post("/redact/apply", h.ApplyRedaction)

			sr.Post("/pages/rotate", h.RotatePages)
			sr.Post("/pages/remove", h.RemovePages)
			sr.Post("/pages/extract", h.ExtractPages)
			sr.Post("/pages/organize", h.OrganizePages)
			sr.Post("/pages/split", h.SplitPDF)
			sr.Post("/compress", h.CompressPDF)
			sr.Post("/protect", h.ProtectPDF)
			sr.Post("/unlock", h.UnlockPDF)

			sr.Post("/convert/to-pdf", h.ConvertToPDF)
			sr.Post("/convert/to-jpg", h.ConvertToJPG)
			sr.Post("/convert/to-xlsx", h.ConvertToExcel)
			sr.Post("/convert/images", h.ImagesToPDF)
			sr.Post("/compare", h.ComparePDFs)

			sr.Post("/scans", h.UploadScan)
			sr.Get("/scans", h.PollScans)
			sr.Post("/scans/assemble", h.AssembleScans)
		})
	})
	r.Route("/api/layout", func(api chi.Router) {
		api.Post("/watermark", h.LayoutWatermark)
		api.Post("/crop", h.LayoutCrop)
		api.Post("/placement", h.LayoutPlacement)
	})

	return r
}
