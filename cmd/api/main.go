package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Ze-Austin/ze-school/api/swagger"
	"github.com/Ze-Austin/ze-school/internal/handler"
	"github.com/Ze-Austin/ze-school/internal/middleware"
	"github.com/Ze-Austin/ze-school/internal/models"
	"github.com/Ze-Austin/ze-school/internal/repository"
	"github.com/Ze-Austin/ze-school/internal/service"
	"github.com/Ze-Austin/ze-school/pkg/cache"
	"github.com/Ze-Austin/ze-school/pkg/config"
	"github.com/Ze-Austin/ze-school/pkg/database"
	"github.com/Ze-Austin/ze-school/pkg/logger"
	corsmiddleware "github.com/Ze-Austin/ze-school/pkg/middleware/cors"
	reqidmiddleware "github.com/Ze-Austin/ze-school/pkg/middleware/requestid"
)

// @title Ze School API
// @version 1.0.0
// @description Student, course and grade management service
// @BasePath /
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	var revocation repository.RevocationStore = repository.NewMemoryRevocationStore()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		revocation = repository.NewRedisRevocationStore(redisClient, logr)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	authSvc := service.NewAuthService(userRepo, revocation, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		Issuer:             cfg.JWT.Issuer,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, userRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, userRepo, validate, logr)
	transcriptSvc := service.NewTranscriptService(gradeSvc, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(userSvc, courseSvc, gradeSvc, transcriptSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := middleware.JWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), "SELF")

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/admin/register", userHandler.RegisterAdmin)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authn, authHandler.Logout)
		auth.GET("/me", authn, authHandler.Me)
		auth.GET("/users", authn, adminOnly, userHandler.ListUsers)
	}

	admins := api.Group("/admins")
	admins.Use(authn, adminOnly)
	{
		admins.GET("", userHandler.ListAdmins)
		admins.GET("/:id", userHandler.GetAdmin)
		admins.PUT("/:id", userHandler.UpdateAdmin)
		admins.DELETE("/:id", userHandler.DeleteAdmin)
	}

	students := api.Group("/students")
	{
		students.POST("", authn, adminOnly, studentHandler.Register)
		students.GET("", authn, adminOnly, studentHandler.List)
		students.GET("/:id", authn, adminOrSelf, studentHandler.Get)
		students.PUT("/:id", authn, adminOrSelf, studentHandler.Update)
		students.DELETE("/:id", authn, adminOnly, studentHandler.Delete)
		students.GET("/:id/courses", authn, adminOrSelf, studentHandler.Courses)
		students.GET("/:id/grades", authn, adminOrSelf, studentHandler.Grades)
		students.POST("/:id/grades", authn, adminOnly, studentHandler.RecordGrade)
		students.GET("/:id/cgpa", authn, adminOrSelf, studentHandler.CGPA)
		students.GET("/:id/transcript", authn, adminOrSelf, studentHandler.Transcript)
	}

	courses := api.Group("/courses")
	courses.Use(authn)
	{
		courses.GET("", courseHandler.List)
		courses.POST("", adminOnly, courseHandler.Create)
		courses.GET("/:id", courseHandler.Get)
		courses.PUT("/:id", adminOnly, courseHandler.Update)
		courses.DELETE("/:id", adminOnly, courseHandler.Delete)
		courses.GET("/:id/students", adminOnly, courseHandler.Students)
		courses.POST("/:id/students", adminOnly, courseHandler.Enroll)
		courses.DELETE("/:id/students/:student_id", adminOnly, courseHandler.Drop)
	}

	grades := api.Group("/grades")
	grades.Use(authn, adminOnly)
	{
		grades.PUT("/:id", gradeHandler.Update)
		grades.DELETE("/:id", gradeHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
