// Package router wires handlers, middleware and route groups onto the Echo
// instance. The URL layout mirrors the frontend's expectations: static
// entities at fixed prefixes, loan modules mounted under /product and
// /lender, and the dynamic loan surface under /loans.
package router

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/config"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/handler"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/service"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/verify"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	Cfg *config.Config
	DB  *sql.DB
	RDB *redis.Client
}

// Register builds repositories and handlers and mounts every route.
func Register(e *echo.Echo, d Deps) {
	entities := repository.NewEntityRepo(d.DB)
	seq := repository.NewSequenceRepo(d.DB)
	users := repository.NewUserRepo(d.DB)
	rbacRepo := repository.NewRBACRepo(d.DB)
	fieldsRepo := repository.NewFieldRepo(d.DB)
	auditRepo := repository.NewAuditRepo(d.DB)
	docsRepo := repository.NewDocumentRepo(d.DB)
	verifyRepo := repository.NewVerifyRepo(d.DB)

	mailer := service.NewMailer(d.Cfg.SMTPHost, d.Cfg.SMTPPort, d.Cfg.SMTPUser, d.Cfg.SMTPPass, d.Cfg.OTPFrom)
	verifyClient := verify.NewClient(verify.Options{
		GSTURL: d.Cfg.GSTAPIURL,
		GSTKey: d.Cfg.GSTAPIKey,
		GSTApp: d.Cfg.GSTAppID,
		PANURL: d.Cfg.PANAPIURL,
		PANKey: d.Cfg.PANKey(),
		PANApp: d.Cfg.PANApp(),
	})

	authH := handler.NewAuthHandler(d.Cfg, users, rbacRepo, mailer)
	adminH := handler.NewAdminHandler(users, rbacRepo)
	rbacH := handler.NewRBACHandler(rbacRepo)
	fieldsH := handler.NewFieldHandler(fieldsRepo)
	docsH := handler.NewDocHandler(docsRepo, d.Cfg.UploadDir)
	verifyH := handler.NewVerifyHandler(verifyClient, verifyRepo)
	auditH := handler.NewAuditHandler(auditRepo)
	loansH := handler.NewLoanHandler(entities, seq, fieldsRepo)

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.Logger())

	e.GET("/health", handler.Health(d.DB))
	e.Static("/uploads", d.Cfg.UploadDir)

	// authentication, open routes
	otpLimit := middleware.RateLimit(d.Cfg.OTPRateLimit, d.RDB)
	auth := e.Group("/auth", middleware.AuditTrail(auditRepo))
	auth.POST("/request-otp", authH.RequestOTP, otpLimit)
	auth.POST("/verify-otp", authH.VerifyOTP)

	// everything below requires a session; permissions are attached once per
	// request and every route is audited
	api := e.Group("",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.AttachPermissions(rbacRepo),
		middleware.AuditTrail(auditRepo),
	)

	api.GET("/auth/me", authH.Me)
	api.GET("/secure/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"pong": true, "user_id": middleware.UserID(c)})
	})

	api.GET("/rbac/menu", rbacH.Menu)
	api.POST("/rbac/assign-role", rbacH.AssignRole, middleware.RequirePerm("RBAC_MANAGE"))

	// static entities plus every loan module get the full CRUD surface
	for _, cfg := range entity.Static() {
		mountEntity(api, entityPath(cfg.EntityName), cfg, entities, seq, fieldsRepo)
	}
	for key, cfg := range entity.Modules {
		mountEntity(api, "/"+strings.ReplaceAll(key, ":", "/"), cfg, entities, seq, fieldsRepo)
	}

	// dynamic loan surface
	api.GET("/loans/modules", loansH.Modules)
	api.GET("/loans/list", loansH.List)
	api.POST("/loans/booking", loansH.Create)
	api.POST("/loans/booking/bulk", loansH.Bulk)

	// field definitions
	api.GET("/fields", fieldsH.List)
	admFields := api.Group("/admin/fields", middleware.RequirePerm("FIELDS_MANAGE"))
	admFields.GET("", fieldsH.AdminList)
	admFields.POST("", fieldsH.Create)
	admFields.PUT("/:id", fieldsH.Update)
	admFields.DELETE("/:id", fieldsH.Deactivate)

	// documents
	api.GET("/docs/:entity/:id", docsH.List, middleware.RequirePerm("DOCS_READ"))
	api.POST("/docs/:entity/:id/upload", docsH.Upload, middleware.RequirePerm("DOCS_WRITE"))
	api.DELETE("/docs/:id", docsH.Delete, middleware.RequirePerm("DOCS_WRITE"))

	// provider verification proxies
	verifyLimit := middleware.RateLimit(d.Cfg.VerifyRateLimit, d.RDB)
	api.GET("/gst/verify", verifyH.GST, verifyLimit)
	api.GET("/pan/verify", verifyH.PAN, verifyLimit)

	// user and role administration
	adm := api.Group("/admin", middleware.RequirePerm("RBAC_MANAGE"))
	adm.GET("/users", adminH.ListUsers)
	adm.POST("/users", adminH.CreateUser)
	adm.PUT("/users/:id", adminH.UpdateUser)
	adm.PUT("/users/:id/roles", adminH.ReplaceUserRoles)
	adm.GET("/roles", adminH.ListRoles)
	adm.POST("/roles/create", adminH.CreateRole)
	adm.GET("/permissions", adminH.ListPermissions)
	adm.GET("/roles/:code/permissions", adminH.RolePermissions)
	adm.PUT("/roles/:code/permissions", adminH.ReplaceRolePermissions)
	adm.GET("/audit", auditH.List)
}

// entityPath maps an entity name onto its URL prefix.
func entityPath(entityName string) string {
	switch entityName {
	case "financial_institute":
		return "/fin-institutes"
	default:
		return "/" + entityName + "s"
	}
}

func mountEntity(g *echo.Group, path string, cfg entity.Config, entities *repository.EntityRepo, seq *repository.SequenceRepo, fields *repository.FieldRepo) {
	h := handler.NewEntityHandler(cfg, entities, seq, fields)
	grp := g.Group(path)
	grp.GET("", h.List, middleware.RequirePerm(cfg.Perms.Read))
	grp.GET("/:id", h.Get, middleware.RequirePerm(cfg.Perms.Read))
	grp.POST("", h.Create, middleware.RequirePerm(cfg.Perms.Write))
	grp.PUT("/:id", h.Update, middleware.RequirePerm(cfg.Perms.Write))
	grp.POST("/bulk", h.Bulk, middleware.RequirePerm(cfg.Perms.Write))
	grp.PATCH("/:id/status", h.Review, middleware.RequirePerm(cfg.Perms.Review))
}
