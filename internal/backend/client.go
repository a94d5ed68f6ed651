package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"wisefido-intake/internal/models"
)

// ErrVerificationRejected 后端拒绝扫码内容（二维码无效或患者不存在）
var ErrVerificationRejected = errors.New("code verification rejected")

// Config 后端服务配置
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client kiosk 后端 API 客户端
// 提交接口不允许重试，所以客户端不开启 resty 自动重试
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建后端客户端
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// verifyRequest /api/verify-qr 请求体
type verifyRequest struct {
	QRData string `json:"qr_data"`
}

// verifyResponse /api/verify-qr 响应
type verifyResponse struct {
	Status      string         `json:"status"`
	PatientID   json.Number    `json:"patient_id"`
	PatientName string         `json:"patient_name"`
	Profile     map[string]any `json:"profile"`
	Error       string         `json:"error"`
}

// VerifyCode 核验扫码内容，成功返回患者身份
func (c *Client) VerifyCode(ctx context.Context, payload string) (*models.PatientIdentity, error) {
	var result verifyResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(verifyRequest{QRData: payload}).
		SetResult(&result).
		SetError(&result).
		Post("/api/verify-qr")
	if err != nil {
		return nil, fmt.Errorf("failed to call verify-qr: %w", err)
	}

	if resp.IsError() || result.Status != "success" {
		reason := result.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode())
		}
		c.logger.Warn("Code verification rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("reason", reason),
		)
		return nil, fmt.Errorf("%w: %s", ErrVerificationRejected, reason)
	}

	id := &models.PatientIdentity{
		PatientID: result.PatientID.String(),
		Name:      result.PatientName,
		Age:       profileString(result.Profile, "age"),
		Gender:    profileString(result.Profile, "gender"),
		Contact:   profileString(result.Profile, "contact"),
		Address:   profileString(result.Profile, "address"),
	}
	if id.Name == "" {
		id.Name = profileString(result.Profile, "name")
	}
	return id, nil
}

// LatestSample 读取传感器最新快照（GET /api/sensor）
func (c *Client) LatestSample(ctx context.Context) (*models.SensorSample, error) {
	var sample models.SensorSample
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&sample).
		Get("/api/sensor")
	if err != nil {
		return nil, fmt.Errorf("failed to read sensor: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sensor endpoint returned status %d", resp.StatusCode())
	}
	return &sample, nil
}

// pictureResponse /take_picture 响应
type pictureResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// TakePicture 调用外部摄像头服务拍照，返回文件名
func (c *Client) TakePicture(ctx context.Context) (string, error) {
	var result pictureResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get("/take_picture")
	if err != nil {
		return "", fmt.Errorf("failed to call take_picture: %w", err)
	}
	if resp.IsError() || result.Status != "success" || result.Filename == "" {
		return "", fmt.Errorf("external capture failed (status %d): %s", resp.StatusCode(), result.Message)
	}
	return result.Filename, nil
}

// Submit 提交完整问诊记录（POST /api/robot-patient），只调用一次
func (c *Client) Submit(ctx context.Context, payload *models.SubmissionPayload) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/api/robot-patient")
	if err != nil {
		return fmt.Errorf("failed to submit interview: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("submission rejected with status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	c.logger.Info("Interview submitted",
		zap.String("patient_id", payload.PatientID),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}

// profileString 从 profile 中取字段并统一为字符串（数字不带小数）
func profileString(profile map[string]any, key string) string {
	v, ok := profile[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
