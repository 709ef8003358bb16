package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/affpress/internal/models"
)

type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
	}
}

// RecordError stores an error log entry
func (m *MonitoringService) RecordError(level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	if err := m.db.Create(errorLog).Error; err != nil {
		m.logger.Error("Failed to record error log", zap.String("title", title), zap.Error(err))
		return err
	}
	return nil
}

// ErrorLogOption sets optional error log fields
type ErrorLogOption func(*models.ErrorLog)

// WithErrorTopic sets the topic being processed
func WithErrorTopic(topic string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.Topic = topic
	}
}

// WithContent sets the related content item
func WithContent(contentID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contentID != "" {
			e.ContentID = &contentID
		}
	}
}

// WithContext attaches extra context encoded as JSON
func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = string(contextBytes)
		}
	}
}

// RecordMetric stores a metric sample
func (m *MonitoringService) RecordMetric(name, metricType string, value float64, tags map[string]interface{}) error {
	var tagsJSON string
	if tags != nil {
		if tagsBytes, err := json.Marshal(tags); err == nil {
			tagsJSON = string(tagsBytes)
		}
	}

	metric := &models.MetricsSample{
		MetricName: name,
		MetricType: metricType,
		Value:      value,
		Tags:       tagsJSON,
		Timestamp:  time.Now(),
	}

	return m.db.Create(metric).Error
}

// GetRecentErrors returns the newest error log entries
func (m *MonitoringService) GetRecentErrors(limit int) ([]models.ErrorLog, error) {
	var errors []models.ErrorLog
	err := m.db.Order("created_at desc").
		Limit(limit).
		Find(&errors).Error
	return errors, err
}

// CountMetric sums the samples recorded under name
func (m *MonitoringService) CountMetric(name string) (float64, error) {
	var total float64
	err := m.db.Model(&models.MetricsSample{}).
		Where("metric_name = ?", name).
		Select("COALESCE(SUM(value), 0)").
		Scan(&total).Error
	return total, err
}

// CleanupOldData removes metric samples and error logs older than daysToKeep
func (m *MonitoringService) CleanupOldData(ctx context.Context, daysToKeep int) error {
	cutoffDate := time.Now().AddDate(0, 0, -daysToKeep)

	if err := m.db.WithContext(ctx).Where("timestamp < ?", cutoffDate).Delete(&models.MetricsSample{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup metrics samples: %w", err)
	}

	if err := m.db.WithContext(ctx).Where("created_at < ?", cutoffDate).Delete(&models.ErrorLog{}).Error; err != nil {
		return fmt.Errorf("failed to cleanup error logs: %w", err)
	}

	return nil
}
