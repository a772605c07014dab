package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

const maxSettingKeyLength = 128

type SettingsService struct {
	writer domain.SettingsWriter
}

func NewSettingsService(writer domain.SettingsWriter) *SettingsService {
	return &SettingsService{writer: writer}
}

// Put validates and stores one settings value. Page values must use a page_ key,
// and known page sections must decode into their section type.
func (s *SettingsService) Put(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidSetting, scope)
	}
	if key == "" || len(key) > maxSettingKeyLength {
		return fmt.Errorf("%w: key must be 1-%d characters", ErrInvalidSetting, maxSettingKeyLength)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: value is not valid JSON", ErrInvalidSetting)
	}

	if scope == domain.ScopePage {
		if err := validatePageValue(key, value); err != nil {
			return err
		}
	}

	if err := s.writer.PutSetting(ctx, userID, scope, key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

func validatePageValue(key string, value json.RawMessage) error {
	if !strings.HasPrefix(key, "page_") {
		return fmt.Errorf("%w: page settings keys must start with page_", ErrInvalidSetting)
	}

	// Sections may be stored as a JSON string holding the encoded object.
	text := string(value)
	var encoded string
	if json.Unmarshal(value, &encoded) == nil {
		text = encoded
	}

	var err error
	switch key {
	case domain.PageKeyCalendar:
		_, err = ResolveStored(domain.Raw(text), domain.DefaultCalendarSettings())
	case domain.PageKeyReportsUserDayWise:
		_, err = ResolveStored(domain.Raw(text), domain.DefaultUserDayWiseSettings())
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSetting, key, err)
	}
	return nil
}
