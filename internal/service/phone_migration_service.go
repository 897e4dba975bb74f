package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/jobs"
	"github.com/noah-isme/course-registration-api/pkg/phonecodec"
)

const phoneMigrationJob = "phone.encrypt"

var errEmptyPhone = errors.New("phone is empty after removing hyphens")

type phoneUserStore interface {
	ListWithPhone(ctx context.Context) ([]models.PhoneRecord, error)
	UpdatePhone(ctx context.Context, id int64, phone string) error
}

type phoneEncrypter interface {
	EncryptPhone(raw string) (string, error)
}

// PhoneMigrationConfig tunes the worker pool of the migration pass.
type PhoneMigrationConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// MigrationFailure names a row the migration could not encrypt.
type MigrationFailure struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// MigrationSummary reports the outcome of one migration pass.
type MigrationSummary struct {
	Total            int                `json:"total"`
	Encrypted        int                `json:"encrypted"`
	AlreadyEncrypted int                `json:"already_encrypted"`
	Failed           int                `json:"failed"`
	Failures         []MigrationFailure `json:"failures,omitempty"`
}

// PhoneMigrationService encrypts phone numbers still stored as plaintext.
// Running it again only touches rows that are still plaintext.
type PhoneMigrationService struct {
	users   phoneUserStore
	phones  phoneEncrypter
	metrics *MetricsService
	config  PhoneMigrationConfig
	logger  *zap.Logger
}

// NewPhoneMigrationService constructs PhoneMigrationService.
func NewPhoneMigrationService(users phoneUserStore, phones phoneEncrypter, metrics *MetricsService, config PhoneMigrationConfig, logger *zap.Logger) *PhoneMigrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &PhoneMigrationService{users: users, phones: phones, metrics: metrics, config: config, logger: logger}
}

// Run performs one pass over every user with a phone value.
func (s *PhoneMigrationService) Run(ctx context.Context) (*MigrationSummary, error) {
	records, err := s.users.ListWithPhone(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list phones")
	}

	summary := &MigrationSummary{Total: len(records)}
	var mu sync.Mutex

	queue := jobs.NewQueue("phone-migration", func(ctx context.Context, job jobs.Job) error {
		record := job.Payload.(models.PhoneRecord)
		if err := s.migrate(ctx, record); err != nil {
			return err
		}
		mu.Lock()
		summary.Encrypted++
		mu.Unlock()
		s.metrics.RecordMigrationResult("encrypted")
		return nil
	}, jobs.QueueConfig{
		Workers:    s.config.Workers,
		MaxRetries: s.config.MaxRetries,
		RetryDelay: s.config.RetryDelay,
		Logger:     s.logger,
		OnExhausted: func(job jobs.Job, err error) {
			record := job.Payload.(models.PhoneRecord)
			mu.Lock()
			summary.Failed++
			summary.Failures = append(summary.Failures, MigrationFailure{UserID: record.ID, Name: record.Name, Reason: err.Error()})
			mu.Unlock()
			s.metrics.RecordMigrationResult("failed")
		},
	})
	queue.Start(ctx)
	defer queue.Stop()

	for _, record := range records {
		if phonecodec.IsEncrypted(record.Phone) {
			summary.AlreadyEncrypted++
			s.metrics.RecordMigrationResult("already_encrypted")
			continue
		}
		if err := queue.Enqueue(jobs.Job{ID: strconv.FormatInt(record.ID, 10), Type: phoneMigrationJob, Payload: record}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule phone migration")
		}
	}

	if err := queue.Drain(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "phone migration interrupted")
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(summary.Failures, func(i, j int) bool { return summary.Failures[i].UserID < summary.Failures[j].UserID })
	s.logger.Info("phone migration finished",
		zap.Int("total", summary.Total),
		zap.Int("encrypted", summary.Encrypted),
		zap.Int("already_encrypted", summary.AlreadyEncrypted),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *PhoneMigrationService) migrate(ctx context.Context, record models.PhoneRecord) error {
	sealed, err := s.phones.EncryptPhone(record.Phone)
	if err != nil {
		return err
	}
	if sealed == "" {
		return errEmptyPhone
	}
	return s.users.UpdatePhone(ctx, record.ID, sealed)
}
