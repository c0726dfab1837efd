package store

import "context"

// SystemSetting is a name/value pair of instance wide settings.
type SystemSetting struct {
	Name        string
	Value       string
	Description string
}

// FindSystemSetting specifies the conditions for finding system settings.
type FindSystemSetting struct {
	Name string
}

const systemSettingSchemaVersion = "schema_version"

// GetSystemSetting returns the setting with the given name, or nil.
func (s *Store) GetSystemSetting(ctx context.Context, name string) (*SystemSetting, error) {
	list, err := s.driver.ListSystemSettings(ctx, &FindSystemSetting{Name: name})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error) {
	return s.driver.UpsertSystemSetting(ctx, upsert)
}
