package main

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/infusitech/invoices_backend/models"
)

const maxBackupSizeBytes int64 = 50 * 1024 * 1024

func exportBackupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		backup, err := models.ExportBackup(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		filename := "invoices-backup-" + time.Now().Format("20060102") + ".json"
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.JSON(http.StatusOK, backup)
	}
}

func importBackupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBackupSizeBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		backup, err := models.ImportBackup(c.Request.Context(), data)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"imported_invoices": len(backup.Invoices),
		})
	}
}
