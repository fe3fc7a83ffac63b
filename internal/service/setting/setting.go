// internal/service/setting/setting.go
package setting

import (
	"context"
	"regexp"
	"strings"
	"time"

	"notary-service/internal/domain/setting"
	xerrors "notary-service/internal/pkg/errors"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	languagePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)
	fileTypePattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
)

// Store is the persistence surface of SettingService.
type Store interface {
	All(ctx context.Context) ([]setting.Setting, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type SettingService struct {
	repo   Store
	logger *zap.Logger
}

func NewSettingService(repo Store, logger *zap.Logger) *SettingService {
	return &SettingService{repo: repo, logger: logger}
}

func (s *SettingService) List(ctx context.Context) ([]setting.Setting, error) {
	return s.repo.All(ctx)
}

// Update validates and stores one setting. The list of allowed file types
// is accepted comma separated and stored as a Postgres array literal.
func (s *SettingService) Update(ctx context.Context, actorID int64, key, value string) error {
	value = strings.TrimSpace(value)
	normalized, err := normalize(key, value)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, key, normalized); err != nil {
		return err
	}
	s.logger.Info("setting updated",
		zap.String("key", key),
		zap.Int64("actor_id", actorID),
	)
	return nil
}

// AllowedFileTypes decodes the allowed_file_types setting.
func (s *SettingService) AllowedFileTypes(ctx context.Context) ([]string, error) {
	raw, err := s.repo.Get(ctx, setting.KeyAllowedFileTypes)
	if err != nil {
		return nil, err
	}
	return DecodeList(raw)
}

func normalize(key, value string) (string, error) {
	switch key {
	case setting.KeySystemName:
		if value == "" || len(value) > 150 {
			return "", xerrors.Invalid(key, "System name must be between 1 and 150 characters")
		}
	case setting.KeyDefaultLanguage:
		if !languagePattern.MatchString(value) {
			return "", xerrors.Invalid(key, "Language must look like en or pt-BR")
		}
	case setting.KeyTimezone:
		if _, err := time.LoadLocation(value); err != nil || value == "" {
			return "", xerrors.Invalid(key, "Unknown timezone")
		}
	case setting.KeyMaintenanceNotice:
		if len(value) > 500 {
			return "", xerrors.Invalid(key, "Notice is too long")
		}
	case setting.KeyAllowedFileTypes:
		return EncodeList(value)
	default:
		return "", xerrors.ErrNotFound
	}
	return value, nil
}

// EncodeList turns "pdf, .DOCX" into the array literal {"pdf","docx"}.
func EncodeList(csv string) (string, error) {
	var types pq.StringArray
	seen := map[string]bool{}
	for _, part := range strings.Split(csv, ",") {
		t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if t == "" || seen[t] {
			continue
		}
		if !fileTypePattern.MatchString(t) {
			return "", xerrors.Invalid(setting.KeyAllowedFileTypes, "Invalid file type "+t)
		}
		seen[t] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return "", xerrors.Invalid(setting.KeyAllowedFileTypes, "At least one file type is required")
	}
	v, err := types.Value()
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// DecodeList parses an array literal written by EncodeList.
func DecodeList(literal string) ([]string, error) {
	var types pq.StringArray
	if err := types.Scan(literal); err != nil {
		return nil, xerrors.Wrap(err, "decode list setting")
	}
	return []string(types), nil
}
