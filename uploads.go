package main

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/models"
)

const maxLogoSizeBytes int64 = 5 * 1024 * 1024

// Logo is stored as a data URI so exported documents stay self-contained.
const maxLogoWidth = 600

var logoMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func uploadLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("logo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "logo file is required"})
			return
		}
		if fileHeader.Size > maxLogoSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		mimeType := fileHeader.Header.Get("Content-Type")
		if !logoMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxLogoSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if int64(len(data)) > maxLogoSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a valid image"})
			return
		}
		if img.Bounds().Dx() > maxLogoWidth {
			img = imaging.Resize(img, maxLogoWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			config.LogError(logger, "uploads.go", "uploadLogoHandler", "Encode", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process image"})
			return
		}

		dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		if err := models.SaveLogo(c.Request.Context(), dataURI); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logo": dataURI})
	}
}

func getLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logo, err := models.GetLogo(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logo": logo})
	}
}

func removeLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.RemoveLogo(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
