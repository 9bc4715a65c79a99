package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/campusware/registrar/internal/api/http"
	auth "github.com/campusware/registrar/internal/auth/middleware"
	"github.com/campusware/registrar/internal/config"
	"github.com/campusware/registrar/internal/db"
	"github.com/campusware/registrar/internal/event"
	"github.com/campusware/registrar/internal/gradescale"
	"github.com/campusware/registrar/internal/marks"
	"github.com/campusware/registrar/internal/notify"
	"github.com/campusware/registrar/internal/rbac"
	"github.com/campusware/registrar/internal/result"
	"github.com/campusware/registrar/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	scale := gradescale.NewStore(dbh)
	// explicit one-time seeding; reads never write
	if err := scale.Seed(ctx); err != nil {
		log.Fatalf("grade scale seed: %v", err)
	}

	marksStore := marks.NewStore(dbh)
	bus := event.NewBus(dbh)
	bus.Subscribe(event.TypeSemesterFrozen, func(ctx context.Context, tx *sql.Tx, e event.Event) error {
		return marksStore.LockSemester(ctx, tx, e.Key)
	})

	svc := result.NewService(dbh, scale, bus, notify.Noop{})

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("scale:view")).
			Get("/grade-scale", api.GetScaleHandler(scale))
		pr.With(rbac.Require("scale:replace")).
			Put("/grade-scale", api.ReplaceScaleHandler(scale))

		pr.With(rbac.Require("marks:enter")).
			Post("/marks", api.EnterMarksHandler(marksStore))
		pr.With(rbac.Require("marks:edit")).
			Put("/marks/{markID}", api.EditMarksHandler(marksStore))
		pr.With(rbac.Require("marks:bulk")).
			Post("/exam-schedules/{scheduleID}/marks/bulk", api.BulkUploadHandler(marksStore, blobs))
		pr.With(rbac.Require("marks:lock")).
			Post("/exam-schedules/{scheduleID}/lock", api.LockMarksHandler(marksStore))

		pr.With(rbac.Require("grades:calculate")).
			Post("/courses/{courseID}/semesters/{semesterID}/calculate", api.CalculateCourseHandler(svc))
		pr.With(rbac.Require("grades:calculate")).
			Post("/semesters/{semesterID}/calculate", api.CalculateSemesterHandler(svc))

		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/students/{studentID}/semesters/{semesterID}/sgpa", api.SGPAHandler(svc))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/students/{studentID}/cgpa", api.CGPAHandler(svc))
		pr.With(rbac.RequireAny("transcript:view-own", "transcript:view-all")).
			Get("/students/{studentID}/transcript", api.TranscriptHandler(svc))

		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/semesters/{semesterID}", api.GetSemesterHandler(svc))
		pr.With(rbac.Require("results:gpa")).
			Post("/semesters/{semesterID}/gpa", api.GPABatchHandler(svc))
		pr.With(rbac.Require("results:process")).
			Post("/semesters/{semesterID}/process", api.ProcessResultsHandler(svc, cfg))
		pr.With(rbac.Require("results:promote")).
			Post("/semesters/{semesterID}/promote", api.PromoteStudentsHandler(svc))
		pr.With(rbac.Require("semester:publish")).
			Post("/semesters/{semesterID}/publish", api.PublishResultsHandler(svc))
		pr.With(rbac.Require("semester:freeze")).
			Post("/semesters/{semesterID}/freeze", api.FreezeResultsHandler(svc))

		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("registrar gateway listening on %s (db driver=%s)", cfg.HTTPAddr, cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}
