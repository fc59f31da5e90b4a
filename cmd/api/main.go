package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/uniwatch/uniwatch-api/internal/handler"
	"github.com/uniwatch/uniwatch-api/internal/middleware"
	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/internal/repository"
	"github.com/uniwatch/uniwatch-api/internal/service"
	"github.com/uniwatch/uniwatch-api/pkg/cache"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	"github.com/uniwatch/uniwatch-api/pkg/database"
	"github.com/uniwatch/uniwatch-api/pkg/logger"
	corsmiddleware "github.com/uniwatch/uniwatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniwatch/uniwatch-api/pkg/middleware/requestid"
	"github.com/uniwatch/uniwatch-api/pkg/notify"
	"github.com/uniwatch/uniwatch-api/pkg/recognition"
	"github.com/uniwatch/uniwatch-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, reports will not be cached", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var blobs storage.Store
	var localStore *storage.LocalStore
	var urlSigner *storage.SignedURLSigner
	switch cfg.Storage.Backend {
	case "cloudinary":
		blobs = storage.NewCloudinaryStore(cfg.Storage.CloudName, cfg.Storage.APIKey, cfg.Storage.APISecret, cfg.Storage.Folder)
	default:
		if cfg.Storage.SignedURLSecret != "" {
			urlSigner = storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
		}
		localStore, err = storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, urlSigner)
		if err != nil {
			logr.Sugar().Fatalw("failed to init local storage", "error", err)
		}
		blobs = localStore
	}

	recognizer := recognition.New(cfg.Recognition.BaseURL, cfg.Recognition.APIKey, cfg.Recognition.Timeout)

	var notifier notify.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewCloudNotifier(notify.Config{
			SendGridKey:      cfg.Notify.SendGridKey,
			EmailFrom:        cfg.Notify.EmailFrom,
			EmailFromName:    cfg.Notify.EmailFromName,
			TwilioAccountSID: cfg.Notify.TwilioAccountSID,
			TwilioAuthToken:  cfg.Notify.TwilioAuthToken,
			SMSFrom:          cfg.Notify.SMSFrom,
		})
	} else {
		notifier = notify.NewConsoleNotifier(logr)
	}

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	trainingSvc := service.NewTrainingService(classRepo, recognizer, cfg.Recognition, logr)
	classSvc := service.NewClassService(classRepo, enrollmentRepo, recognizer, trainingSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, userRepo, profileRepo, classRepo, recognizer, logr)
	lectureSvc := service.NewLectureService(lectureRepo, classRepo, enrollmentRepo, blobs, recognizer, notifier, cfg.Uploads, logr)
	lectureSvc.SetMetrics(metricsSvc)
	trainingSvc.SetMetrics(metricsSvc)
	profileSvc := service.NewProfileService(profileRepo, userRepo, blobs, cfg.Uploads, logr)
	studentSvc := service.NewStudentService(userRepo, logr)

	var reportCache service.ReportCache
	if redisClient != nil {
		reportCache = redisClient
	}
	reportSvc := service.NewReportService(lectureRepo, classRepo, reportCache, cfg.Reports.CacheTTL, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	trainingSvc.Start(ctx)
	defer trainingSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	classHandler := handler.NewClassHandler(classSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	lectureHandler := handler.NewLectureHandler(lectureSvc, metricsSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, profileSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if localStore != nil {
		if urlSigner != nil {
			r.GET("/files/:token", func(c *gin.Context) {
				name, _, err := urlSigner.Parse(c.Param("token"))
				if err != nil {
					c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
					return
				}
				c.File(localStore.Path(name))
			})
		} else {
			r.Static("/files", localStore.Dir())
		}
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	teachers := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)

	authed.GET("/classes", classHandler.List)
	authed.GET("/classes/:id", classHandler.Get)
	authed.POST("/classes", teachers, classHandler.Create)
	authed.DELETE("/classes/:id", teachers, classHandler.Delete)
	authed.POST("/classes/:id/train", teachers, classHandler.Train)

	authed.GET("/classes/:id/roster", teachers, enrollmentHandler.Roster)
	authed.POST("/classes/:id/roster", teachers, enrollmentHandler.Enroll)
	authed.DELETE("/classes/:id/roster/:studentId", teachers, enrollmentHandler.Unenroll)

	authed.GET("/classes/:id/lectures", lectureHandler.List)
	authed.POST("/classes/:id/lectures", teachers, lectureHandler.Record)
	authed.GET("/lectures/:lectureId", lectureHandler.Get)
	authed.PATCH("/lectures/:lectureId/attendance", teachers, lectureHandler.Override)
	authed.DELETE("/lectures/:lectureId", teachers, lectureHandler.Delete)

	authed.GET("/classes/:id/report", teachers, reportHandler.ClassSummary)
	authed.GET("/classes/:id/report/csv", teachers, reportHandler.ExportCSV)
	authed.GET("/classes/:id/report/pdf", teachers, reportHandler.ExportPDF)
	authed.GET("/classes/:id/report/students/:studentId", reportHandler.StudentSummary)

	authed.GET("/students", teachers, studentHandler.List)
	authed.GET("/students/:id", teachers, studentHandler.Get)
	authed.GET("/students/:id/profile", studentHandler.GetProfile)
	authed.POST("/students/:id/profile/images", studentHandler.AddProfileImage)
	authed.DELETE("/students/:id/profile/images/:imageId", studentHandler.RemoveProfileImage)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
