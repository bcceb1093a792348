package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/models"
	"github.com/infusitech/invoices_backend/models/docs"
	"github.com/infusitech/invoices_backend/utils"
)

const defaultPort = "8080"

var tracer = otel.Tracer("invoices-backend")

// respondError maps model errors onto HTTP statuses. Sentinels get their
// own codes; everything else from the models package is treated as a bad
// request, matching the validation-heavy error surface of the models.
func respondError(c *gin.Context, err error) {
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	body := gin.H{"error": err.Error(), "correlation_id": cid}
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, body)
	case errors.Is(err, utils.ErrExceedsBalance):
		c.JSON(http.StatusUnprocessableEntity, body)
	default:
		c.JSON(http.StatusBadRequest, body)
	}
}

// bindJSON decodes the request body into dest, answering with per-field
// validation detail when the binding tags reject it.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation failed",
				"fields": utils.ProcessValidationErrors(err),
			})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		}
		return false
	}
	return true
}

func parseIdParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.InvoiceStatus
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			s := models.InvoiceStatus(raw)
			if !s.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": raw + " is not a valid status"})
				return
			}
			status = &s
		}
		var clientName *string
		if raw := strings.TrimSpace(c.Query("client")); raw != "" {
			clientName = &raw
		}

		invoices, err := models.GetInvoices(c.Request.Context(), status, clientName)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoices": invoices})
	}
}

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if !bindJSON(c, &input) {
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func updateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		var input models.NewInvoice
		if !bindJSON(c, &input) {
			return
		}
		invoice, err := models.UpdateInvoice(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		invoice, err := models.DeleteInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted_invoice_number": invoice.InvoiceNumber})
	}
}

type markSentRequest struct {
	SentDate *time.Time `json:"sent_date"`
}

func markInvoiceSentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		var req markSentRequest
		if c.Request.ContentLength > 0 {
			if !bindJSON(c, &req) {
				return
			}
		}
		sentDate := utils.DereferencePtr(req.SentDate, time.Now())
		invoice, err := models.MarkInvoiceSent(c.Request.Context(), id, sentDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

type cancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

func cancelInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		var req cancelInvoiceRequest
		if c.Request.ContentLength > 0 {
			if !bindJSON(c, &req) {
				return
			}
		}
		invoice, err := models.CancelInvoice(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func listActivitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		if err := utils.ValidateResourceId[models.Invoice](c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		activities, err := models.GetActivities(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"activities": activities})
	}
}

func listPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		if err := utils.ValidateResourceId[models.Invoice](c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		payments, err := models.GetPayments(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payments": payments})
	}
}

func listPaymentMethodsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"methods": models.SuggestedPaymentMethods()})
	}
}

func recordPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		payment, err := models.RecordPayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

// documentContext bundles the settings every document render needs.
func documentContext(ctx context.Context) (*models.CompanyProfile, string, *models.Theme, error) {
	profile, err := models.GetCompanyProfile(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	logo, err := models.GetLogo(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	theme, err := models.GetTheme(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	return profile, logo, theme, nil
}

func invoiceDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "renderInvoiceDocument")
		defer span.End()

		invoice, err := models.GetInvoice(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		profile, logo, theme, err := documentContext(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		html, err := docs.RenderInvoiceDocument(invoice, profile, logo, theme)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render document"})
			return
		}
		if err := models.RecordInvoiceViewed(ctx, id); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "server.go", "invoiceDocumentHandler", "RecordInvoiceViewed", id, err)
		}

		c.Header("Content-Disposition", `attachment; filename="`+docs.InvoiceDocumentFilename(invoice)+`"`)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}

func receiptDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c, "id")
		if !ok {
			return
		}
		paymentId, ok := parseIdParam(c, "paymentId")
		if !ok {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "renderReceiptDocument")
		defer span.End()

		invoice, err := models.GetInvoice(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		payment, err := models.GetPayment(ctx, id, paymentId)
		if err != nil {
			respondError(c, err)
			return
		}
		profile, logo, theme, err := documentContext(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		html, err := docs.RenderReceiptDocument(invoice, payment, profile, logo, theme, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render document"})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+docs.ReceiptDocumentFilename(payment)+`"`)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}

func exportInvoiceRegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoices, err := models.GetInvoices(c.Request.Context(), nil, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		f, err := docs.BuildInvoiceRegister(c.Request.Context(), invoices)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=invoices.xlsx")
		if err := f.Write(c.Writer); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "server.go", "exportInvoiceRegisterHandler", "Write", nil, err)
		}
	}
}

func getThemeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		theme, err := models.GetTheme(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, theme)
	}
}

func saveThemeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.Theme
		if !bindJSON(c, &input) {
			return
		}
		theme, err := models.SaveTheme(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, theme)
	}
}

func getCompanyProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := models.GetCompanyProfile(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func saveCompanyProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CompanyProfile
		if !bindJSON(c, &input) {
			return
		}
		profile, err := models.SaveCompanyProfile(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until the DB is ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on database readiness. Redis is best-effort
		// and never gates.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/invoices", listInvoicesHandler())
	r.POST("/invoices", createInvoiceHandler())
	r.GET("/invoices/export/xlsx", exportInvoiceRegisterHandler())
	r.GET("/invoices/:id", getInvoiceHandler())
	r.PUT("/invoices/:id", updateInvoiceHandler())
	r.DELETE("/invoices/:id", deleteInvoiceHandler())
	r.POST("/invoices/:id/sent", markInvoiceSentHandler())
	r.POST("/invoices/:id/cancel", cancelInvoiceHandler())
	r.GET("/invoices/:id/activities", listActivitiesHandler())
	r.GET("/invoices/:id/payments", listPaymentsHandler())
	r.POST("/invoices/:id/payments", recordPaymentHandler())
	r.GET("/payments/methods", listPaymentMethodsHandler())
	r.GET("/invoices/:id/document", invoiceDocumentHandler())
	r.GET("/invoices/:id/payments/:paymentId/receipt", receiptDocumentHandler())

	r.GET("/settings/theme", getThemeHandler())
	r.PUT("/settings/theme", saveThemeHandler())
	r.GET("/settings/company", getCompanyProfileHandler())
	r.PUT("/settings/company", saveCompanyProfileHandler())
	r.GET("/settings/logo", getLogoHandler())
	r.POST("/settings/logo", uploadLogoHandler())
	r.DELETE("/settings/logo", removeLogoHandler())

	r.GET("/backup", exportBackupHandler())
	r.POST("/backup", importBackupHandler())

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling on
	// startup and running migrations as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
