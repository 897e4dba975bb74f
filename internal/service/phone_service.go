package service

import (
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/phonecodec"
)

type phoneCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PhoneValue is a stored phone number as shown to readers.
type PhoneValue struct {
	Value       string
	Unavailable bool
	Legacy      bool
}

// PhoneService is the only place phone values are encrypted or decrypted.
// Decryption failures never escape it.
type PhoneService struct {
	cipher  phoneCipher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPhoneService constructs PhoneService.
func NewPhoneService(cipher phoneCipher, metrics *MetricsService, logger *zap.Logger) *PhoneService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhoneService{cipher: cipher, metrics: metrics, logger: logger}
}

// EncryptPhone normalizes raw and encrypts it. An empty number stays empty.
func (s *PhoneService) EncryptPhone(raw string) (string, error) {
	normalized := phonecodec.NormalizePhone(raw)
	if normalized == "" {
		return "", nil
	}
	sealed, err := s.cipher.Encrypt(normalized)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encrypt phone")
	}
	return sealed, nil
}

// DecryptPhone reveals a stored value. Plaintext from before encryption was
// introduced is returned unchanged and flagged Legacy. Undecryptable values
// come back Unavailable.
func (s *PhoneService) DecryptPhone(stored string) PhoneValue {
	if stored == "" {
		return PhoneValue{}
	}
	if !phonecodec.IsEncrypted(stored) {
		return PhoneValue{Value: stored, Legacy: true}
	}
	plain, err := s.cipher.Decrypt(stored)
	if err != nil {
		s.logger.Warn("phone decryption failed", zap.Error(err))
		s.metrics.RecordDecryptFailure()
		return PhoneValue{Unavailable: true}
	}
	return PhoneValue{Value: plain}
}

// Display renders a decrypted value for people, hyphenating 11-digit numbers.
func (v PhoneValue) Display() string {
	if v.Unavailable {
		return ""
	}
	return phonecodec.FormatPhoneNumber(v.Value)
}
