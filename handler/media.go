package handler

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/service"
	"github.com/contractvault/backend/store"
)

// maxUploadFiles caps one multi-file upload request.
const maxUploadFiles = 10

var allowedUploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

type MediaHandler struct {
	media     store.MediaStore
	contracts store.ContractStore
	minio     *service.MinioService
}

func NewMediaHandler(media store.MediaStore, contracts store.ContractStore, minio *service.MinioService) *MediaHandler {
	return &MediaHandler{media: media, contracts: contracts, minio: minio}
}

// Upload stores one file and its metadata. An optional contractId form
// field attaches the file to a contract and marks the contract as
// having a document.
func (h *MediaHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	media, status, err := h.storeOne(c, file, header)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, media)
}

// UploadMultiple stores up to maxUploadFiles files in one request.
func (h *MediaHandler) UploadMultiple(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}
	if len(files) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d files per upload", maxUploadFiles)})
		return
	}

	var uploaded []*model.Media
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file " + header.Filename})
			return
		}
		media, status, err := h.storeOne(c, file, header)
		file.Close()
		if err != nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		uploaded = append(uploaded, media)
	}

	c.JSON(http.StatusCreated, gin.H{
		"media": uploaded,
		"total": len(uploaded),
	})
}

// storeOne uploads one file to the bucket and inserts its metadata.
func (h *MediaHandler) storeOne(c *gin.Context, file multipart.File, header *multipart.FileHeader) (*model.Media, int, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedUploadTypes[ext]
	if !ok {
		return nil, http.StatusBadRequest, errors.New("Unsupported file type: " + ext)
	}

	var contractID *primitive.ObjectID
	if raw := c.PostForm("contractId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("Invalid contract id")
		}
		if _, err := h.contracts.FindByID(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, http.StatusNotFound, errors.New("Contract not found")
			}
			return nil, http.StatusInternalServerError, errors.New("Failed to upload file")
		}
		contractID = &id
	}

	objectName := uuid.NewString() + ext
	if err := h.minio.UploadFile(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		return nil, http.StatusInternalServerError, errors.New("Failed to upload file")
	}

	media := &model.Media{
		URL:          h.minio.GetPublicURL(objectName),
		Filename:     objectName,
		OriginalName: header.Filename,
		Mimetype:     contentType,
		Size:         header.Size,
		PublicID:     objectName,
		ContractID:   contractID,
	}
	if userID, ok := middleware.GetUserID(c); ok {
		media.UploadedBy = &userID
	}

	if err := h.media.Insert(c.Request.Context(), media); err != nil {
		return nil, http.StatusInternalServerError, errors.New("Failed to save file metadata")
	}

	if contractID != nil {
		hasDoc := true
		if _, err := h.contracts.Update(c.Request.Context(), *contractID, model.ContractUpdate{HasDocument: &hasDoc}); err != nil {
			slog.Warn("failed to flag contract as documented", "contract_id", contractID.Hex(), "error", err)
		}
	}
	return media, http.StatusCreated, nil
}

// List returns file metadata, paginated, excluding soft-deleted items.
func (h *MediaHandler) List(c *gin.Context) {
	page, limit := pagination(c)

	total, err := h.media.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list media"})
		return
	}
	media, err := h.media.List(c.Request.Context(), (page-1)*limit, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list media"})
		return
	}
	if media == nil {
		media = []model.Media{}
	}

	c.JSON(http.StatusOK, gin.H{
		"media": media,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get returns one media item's metadata plus a time-limited download
// URL signed against the bucket.
func (h *MediaHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid media id"})
		return
	}

	media, err := h.media.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load media"})
		return
	}

	resp := gin.H{"media": media}
	if url, err := h.minio.GetPresignedURL(c.Request.Context(), media.PublicID); err == nil {
		resp["downloadUrl"] = url
	} else {
		slog.Warn("failed to presign media download", "object", media.PublicID, "error", err)
	}
	c.JSON(http.StatusOK, resp)
}

// Delete soft-deletes the metadata record, then removes the stored
// object. The record survives as a tombstone.
func (h *MediaHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid media id"})
		return
	}

	media, err := h.media.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete media"})
		return
	}

	if err := h.media.SoftDelete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete media"})
		return
	}
	if err := h.minio.DeleteFile(c.Request.Context(), media.PublicID); err != nil {
		slog.Warn("failed to remove stored object", "object", media.PublicID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Media deleted"})
}

// DownloadZip streams a zip archive of every file attached to a
// contract.
func (h *MediaHandler) DownloadZip(c *gin.Context) {
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	media, err := h.media.FindByContract(c.Request.Context(), contractID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contract media"})
		return
	}
	if len(media) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No files for this contract"})
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "contract-"+contractID.Hex()+".zip"))

	zw := zip.NewWriter(c.Writer)
	defer zw.Close()

	for _, m := range media {
		obj, err := h.minio.FetchObject(c.Request.Context(), m.PublicID)
		if err != nil {
			slog.Warn("failed to fetch object for zip", "object", m.PublicID, "error", err)
			continue
		}
		entry, err := zw.Create(m.OriginalName)
		if err != nil {
			obj.Close()
			return
		}
		if _, err := io.Copy(entry, obj); err != nil {
			obj.Close()
			return
		}
		obj.Close()
	}
}
