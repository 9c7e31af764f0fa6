package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/utils"
	"github.com/sirupsen/logrus"
)

type uploadResponse struct {
	ObjectKey          string `json:"objectKey"`
	ImageURL           string `json:"imageUrl"`
	ThumbnailObjectKey string `json:"thumbnailObjectKey,omitempty"`
	ThumbnailURL       string `json:"thumbnailUrl,omitempty"`
}

const (
	maxUploadSizeBytes int64 = 5 * 1024 * 1024
	thumbnailWidth           = 200
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var errUploadTooLarge = errors.New("file size exceeds 5MB limit")

// uploadReportImageHandler stores a photo for a report line and returns the key
// to submit as image_ref.
func uploadReportImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()
		storeId := sessionStoreId(c)

		period := strings.TrimSpace(c.PostForm("period"))
		if _, err := models.ParsePeriod(period); err != nil {
			respondError(c, err)
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errUploadTooLarge.Error()})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		defer file.Close()
		data, err := readLimited(file, maxUploadSizeBytes)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mimeType := http.DetectContentType(data)
		if !imageMimeTypes[mimeType] {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "only JPEG and PNG images are accepted"})
			return
		}

		objectKey := reportImageKey(storeId, period, mimeType)
		if err := utils.UploadBytesToGCS(ctx, objectKey, data, mimeType); err != nil {
			logUploadError(logger, err, objectKey, requestIDFromContext(ctx))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}

		resp := uploadResponse{
			ObjectKey: objectKey,
			ImageURL:  utils.BuildObjectAccessURL(objectKey),
		}
		thumbKey, err := createThumbnail(ctx, objectKey, data)
		if err != nil {
			// the full-size image is still usable without a thumbnail
			logUploadError(logger, err, objectKey, requestIDFromContext(ctx))
		} else {
			resp.ThumbnailObjectKey = thumbKey
			resp.ThumbnailURL = utils.BuildObjectAccessURL(thumbKey)
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// imageObjectHandler streams an uploaded image. Stores may only read their own.
func imageObjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		objectKey := strings.TrimSpace(c.Query("key"))
		if !utils.IsValidObjectKey(objectKey) || !strings.HasPrefix(objectKey, "reports/") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
			return
		}
		session, _ := utils.GetSessionFromContext(c.Request.Context())
		if session.Role == string(models.AccountRoleStore) &&
			!strings.HasPrefix(objectKey, "reports/"+strconv.Itoa(session.AccountId)+"/") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		data, err := utils.ReadObjectFromGCS(c.Request.Context(), objectKey, maxUploadSizeBytes)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		c.Data(http.StatusOK, http.DetectContentType(data), data)
	}
}

func reportImageKey(storeId int, period string, mimeType string) string {
	return path.Join("reports", strconv.Itoa(storeId), period, uuid.NewString()+extensionFromMimeType(mimeType))
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

func createThumbnail(ctx context.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := thumbnailObjectKey(objectKey)
	if err := utils.UploadBytesToGCS(ctx, thumbnailKey, buf.Bytes(), "image/jpeg"); err != nil {
		_ = utils.DeleteObjectFromGCS(ctx, thumbnailKey)
		return "", err
	}
	return thumbnailKey, nil
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := strings.TrimSuffix(path.Base(objectKey), path.Ext(objectKey)) + ".jpg"
	return path.Join(dir, "thumbnails", filename)
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func logUploadError(logger *logrus.Logger, err error, objectKey string, requestID string) {
	logger.WithFields(logrus.Fields{
		"error":      err.Error(),
		"object_key": objectKey,
		"request_id": requestID,
	}).Error("[upload.error]")
}

func requestIDFromContext(ctx context.Context) string {
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	return cid
}
