package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/Samsiani/gn1-invoice-dash-sub001/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(callerContext())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/invoices", saveInvoiceHandler(0))
		api.PUT("/invoices/:id", updateInvoiceHandler)
		api.POST("/invoices/:id/toggle-status", toggleStatusHandler)
		api.POST("/invoices/:id/mark-sold", markSoldHandler)
		api.GET("/invoices/:id", getInvoiceHandler)
		api.GET("/invoices", listInvoicesHandler)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Connect dependencies AFTER the server is listening so the container
	// becomes ready quickly; requests fail fast until the DB is up.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
}

// callerContext threads the caller identity and a correlation id into the
// request context. Authentication itself is the external collaborator's
// job; it forwards the resolved user id.
func callerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if userId, err := strconv.Atoi(c.GetHeader("X-User-Id")); err == nil && userId > 0 {
			ctx = utils.SetUserIdInContext(ctx, userId)
		}
		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func saveInvoiceHandler(invoiceId int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		outcome, err := workflow.SaveInvoice(c.Request.Context(), invoiceId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if invoiceId == 0 {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"invoice":        outcome.Invoice,
			"store_degraded": outcome.StoreDegraded,
		})
	}
}

func updateInvoiceHandler(c *gin.Context) {
	invoiceId, err := strconv.Atoi(c.Param("id"))
	if err != nil || invoiceId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	saveInvoiceHandler(invoiceId)(c)
}

func toggleStatusHandler(c *gin.Context) {
	invoiceId, err := strconv.Atoi(c.Param("id"))
	if err != nil || invoiceId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	var input struct {
		FinancialStatus models.FinancialStatus `json:"financial_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := workflow.ToggleFinancialStatus(c.Request.Context(), invoiceId, input.FinancialStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

func markSoldHandler(c *gin.Context) {
	invoiceId, err := strconv.Atoi(c.Param("id"))
	if err != nil || invoiceId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	invoice, err := workflow.MarkInvoiceSold(c.Request.Context(), invoiceId)
	if errors.Is(err, utils.ErrNothingToDo) {
		// informational outcome, not a failure
		c.JSON(http.StatusOK, gin.H{"message": "no reserved items to sell"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

func getInvoiceHandler(c *gin.Context) {
	invoiceId, err := strconv.Atoi(c.Param("id"))
	if err != nil || invoiceId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), invoiceId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

func listInvoicesHandler(c *gin.Context) {
	authorId, err := strconv.Atoi(c.Query("author_id"))
	if err != nil || authorId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author_id is required"})
		return
	}
	invoices, err := models.ListInvoicesByAuthor(c.Request.Context(), authorId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message, "field": validationErr.Field})
		return
	}
	if shortages, ok := utils.AsShortageList(err); ok {
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock", "shortages": shortages})
		return
	}
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "server", "respondError", "unhandled error", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
