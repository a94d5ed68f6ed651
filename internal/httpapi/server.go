// Package httpapi 是 kiosk 的本地 HTTP 入口（gin）：问诊状态、操作员启动、语言切换、
// 照片上传、终端 websocket 以及提交记录导出。
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-intake/internal/export"
	"wisefido-intake/internal/interview"
	"wisefido-intake/internal/models"
)

// Interview 控制器中 HTTP 层用到的部分
type Interview interface {
	Start() error
	Snapshot() interview.Snapshot
}

// Session 语言与字段存储
type Session interface {
	Language(ctx context.Context) models.Language
	SetLanguage(ctx context.Context, lang models.Language) error
	SaveField(ctx context.Context, field, value string) error
}

// SubmissionLister 提交审计记录查询；审计库关闭时为 nil
type SubmissionLister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.SubmissionRecord, error)
}

// Options 路由依赖
type Options struct {
	Interview   Interview
	Session     Session
	Terminal    http.Handler
	Submissions SubmissionLister
	UploadDir   string
	Logger      *zap.Logger
}

// Server HTTP handler 集合
type Server struct {
	opts   Options
	logger *zap.Logger
}

// NewRouter 创建 gin 路由
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	s := &Server{opts: opts, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.GET("/interview/state", s.interviewState)
		api.POST("/interview/start", s.startInterview)
		api.GET("/lang", s.getLanguage)
		api.POST("/lang", s.setLanguage)
		api.GET("/submissions/export.xlsx", s.exportSubmissions)
	}

	r.POST("/upload_photo", s.uploadPhoto)
	r.GET("/uploads/:filename", s.servePhoto)
	if opts.Terminal != nil {
		r.GET("/ws/terminal", gin.WrapH(opts.Terminal))
	}
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) interviewState(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Interview.Snapshot())
}

// startInterview 操作员手动开始（不等体重触发）
func (s *Server) startInterview(c *gin.Context) {
	if err := s.opts.Interview.Start(); err != nil {
		if errors.Is(err, interview.ErrAlreadyStarted) {
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "interview already in progress"})
			return
		}
		s.logger.Error("Failed to start interview", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) getLanguage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lang": s.opts.Session.Language(c.Request.Context())})
}

type languageRequest struct {
	Lang string `json:"lang" binding:"required"`
}

func (s *Server) setLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "lang is required"})
		return
	}
	lang := models.Language(req.Lang)
	if lang != models.LanguageEnglish && lang != models.LanguageHindi {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": fmt.Sprintf("unsupported language: %s", req.Lang)})
		return
	}
	if err := s.opts.Session.SetLanguage(c.Request.Context(), lang); err != nil {
		s.logger.Error("Failed to set language", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lang": lang})
}

// uploadPhoto 页面相机上传；保存后写入会话 photo 字段供拍照阶段读取
func (s *Server) uploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil || file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "No photo uploaded"})
		return
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		s.logger.Error("Failed to create upload dir", zap.String("dir", s.opts.UploadDir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	filename := "patient_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + ".jpg"
	if err := c.SaveUploadedFile(file, filepath.Join(s.opts.UploadDir, filename)); err != nil {
		s.logger.Error("Failed to save photo", zap.String("filename", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if err := s.opts.Session.SaveField(c.Request.Context(), models.FieldPhoto, filename); err != nil {
		s.logger.Warn("Failed to store photo field", zap.String("filename", filename), zap.Error(err))
	}

	s.logger.Info("Photo uploaded", zap.String("filename", filename), zap.Int64("size", file.Size))
	c.JSON(http.StatusOK, gin.H{"status": "success", "filename": filename})
}

func (s *Server) servePhoto(c *gin.Context) {
	name := filepath.Base(c.Param("filename"))
	if name == "." || name == string(filepath.Separator) {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(filepath.Join(s.opts.UploadDir, name))
}

func (s *Server) exportSubmissions(c *gin.Context) {
	if s.opts.Submissions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "submission audit disabled"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid limit"})
			return
		}
		limit = n
	}

	rows, err := s.opts.Submissions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list submissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	data, err := export.GenerateSubmissionsExport(rows)
	if err != nil {
		s.logger.Error("Failed to generate export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	filename := fmt.Sprintf("submissions_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
