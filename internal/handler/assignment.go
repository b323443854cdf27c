package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleversamer/chatting-app/internal/service"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type AssignmentHandler struct {
	assignmentService service.AssignmentService
	files             service.FileStore
	log               logger.Logger
}

func NewAssignmentHandler(assignmentService service.AssignmentService, files service.FileStore, log logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		files:             files,
		log:               log,
	}
}

type CreateAssignmentRequest struct {
	Title           string `form:"title" binding:"required"`
	DurationMinutes int    `form:"duration_minutes"`
	StartAt         string `form:"start_at"`
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateAssignmentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startAt := time.Now()
	if req.StartAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_at must be RFC3339"})
			return
		}
		startAt = t
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	name, data, err := readUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), currentUserID(c), roomID,
		req.Title, req.DurationMinutes, startAt, name, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

func (h *AssignmentHandler) List(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	assignments, err := h.assignmentService.ListRoom(c.Request.Context(), currentUserID(c), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}

type ExtendExpiryRequest struct {
	Hours int `json:"hours" binding:"required,min=1"`
}

func (h *AssignmentHandler) ExtendExpiry(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(c, "assignmentId")
	if !ok {
		return
	}

	var req ExtendExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := h.assignmentService.ExtendExpiry(c.Request.Context(), currentUserID(c), roomID, assignmentID, req.Hours)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

func (h *AssignmentHandler) Submit(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(c, "assignmentId")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	var files []service.SubmissionFile
	for _, fh := range form.File["files"] {
		name, data, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
			return
		}
		files = append(files, service.SubmissionFile{Name: name, Data: data})
	}

	submission, err := h.assignmentService.CreateSubmission(c.Request.Context(), currentUserID(c), roomID, assignmentID, files)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

func (h *AssignmentHandler) HasSubmitted(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "assignmentId")
	if !ok {
		return
	}

	submitted, err := h.assignmentService.HasSubmitted(c.Request.Context(), currentUserID(c), assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"submitted": submitted})
}

func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(c, "assignmentId")
	if !ok {
		return
	}

	submissions, err := h.assignmentService.ListSubmissions(c.Request.Context(), currentUserID(c), roomID, assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// Bundle zips every submission file for an assignment and serves the
// archive. The file itself is short-lived; clients should download it
// right away.
func (h *AssignmentHandler) Bundle(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(c, "assignmentId")
	if !ok {
		return
	}

	archive, err := h.assignmentService.Bundle(c.Request.Context(), currentUserID(c), roomID, assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(archive.DisplayName))
	c.File(h.files.Resolve(archive.Path))
}

func (h *AssignmentHandler) Delete(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(c, "assignmentId")
	if !ok {
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), currentUserID(c), roomID, assignmentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assignment deleted"})
}

func readUpload(fh *multipart.FileHeader) (string, []byte, error) {
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}
