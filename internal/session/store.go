package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/store"
)

// Store 会话级存储：语言选择 + 逐字段持久化的问诊记录
// key 布局：
//
//	intake:{device}:lang
//	intake:{device}:field:{name}
type Store struct {
	kv       store.KV
	deviceID string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewStore 创建会话存储；ttl 为字段过期时间（0 表示不过期）
func NewStore(kv store.KV, deviceID string, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{kv: kv, deviceID: deviceID, ttl: ttl, logger: logger}
}

func (s *Store) langKey() string {
	return fmt.Sprintf("intake:%s:lang", s.deviceID)
}

func (s *Store) fieldKey(field string) string {
	return fmt.Sprintf("intake:%s:field:%s", s.deviceID, field)
}

// Language 读取当前语言；缺失或出错时回退英文
func (s *Store) Language(ctx context.Context) models.Language {
	v, err := s.kv.Get(ctx, s.langKey())
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Failed to read language, falling back to en", zap.Error(err))
		}
		return models.LanguageEnglish
	}
	return models.ParseLanguage(v)
}

// SetLanguage 设置语言（语言选择不随问诊结束清除）
func (s *Store) SetLanguage(ctx context.Context, lang models.Language) error {
	return s.kv.Set(ctx, s.langKey(), string(models.ParseLanguage(string(lang))), 0)
}

// SaveField 持久化单个字段
func (s *Store) SaveField(ctx context.Context, field, value string) error {
	if !models.IsRecordField(field) {
		return fmt.Errorf("unknown record field: %s", field)
	}
	if err := s.kv.Set(ctx, s.fieldKey(field), value, s.ttl); err != nil {
		return fmt.Errorf("failed to save field %s: %w", field, err)
	}
	return nil
}

// Field 读取单个字段；不存在返回 "", nil
func (s *Store) Field(ctx context.Context, field string) (string, error) {
	v, err := s.kv.Get(ctx, s.fieldKey(field))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// Restore 用已持久化的字段重建会话记录（进程重启后恢复已采集的回答）
func (s *Store) Restore(ctx context.Context) *models.SessionRecord {
	rec := models.NewSessionRecord()
	restored := 0
	for _, f := range models.RecordFields {
		v, err := s.Field(ctx, f)
		if err != nil {
			s.logger.Warn("Failed to restore field", zap.String("field", f), zap.Error(err))
			continue
		}
		if v != "" {
			rec.Set(f, v)
			restored++
		}
	}
	if restored > 0 {
		s.logger.Info("Restored session record", zap.Int("field_count", restored))
	}
	return rec
}

// Clear 清空所有记录字段（语言保留）
func (s *Store) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(models.RecordFields))
	for _, f := range models.RecordFields {
		keys = append(keys, s.fieldKey(f))
	}
	return s.kv.Del(ctx, keys...)
}
