package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) ProviderSettings(ctx context.Context, userID int64) (ProviderSettings, error) {
	q := s.sql.Select("user_id", "provider", "model_name", "api_endpoint", "auth_type",
		"enc_api_key", "enc_headers_json", "max_tokens", "temperature", "updated_at").
		From("provider_settings").
		Where(sq.Eq{"user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return ProviderSettings{}, fmt.Errorf("build provider settings query: %w", err)
	}

	var p ProviderSettings
	var encKey, encHeaders sql.NullString
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&p.UserID,
		&p.Provider,
		&p.ModelName,
		&p.APIEndpoint,
		&p.AuthType,
		&encKey,
		&encHeaders,
		&p.MaxTokens,
		&p.Temperature,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProviderSettings{}, ErrNotFound
		}
		return ProviderSettings{}, fmt.Errorf("get provider settings: %w", err)
	}
	if encKey.Valid {
		p.EncAPIKey = &encKey.String
	}
	if encHeaders.Valid {
		p.EncHeadersJSON = &encHeaders.String
	}
	return p, nil
}

// SaveProviderSettings replaces the user's configuration wholesale. A
// partial update could leave a stale (provider, auth style) pair behind,
// so every column is written on each save.
func (s *Store) SaveProviderSettings(ctx context.Context, p ProviderSettings) error {
	q := s.sql.Insert("provider_settings").
		Columns("user_id", "provider", "model_name", "api_endpoint", "auth_type",
			"enc_api_key", "enc_headers_json", "max_tokens", "temperature", "updated_at").
		Values(p.UserID, p.Provider, p.ModelName, p.APIEndpoint, p.AuthType,
			p.EncAPIKey, p.EncHeadersJSON, p.MaxTokens, p.Temperature, nowExpr(s.driver)).
		Suffix("ON CONFLICT(user_id) DO UPDATE SET provider=excluded.provider, model_name=excluded.model_name, api_endpoint=excluded.api_endpoint, auth_type=excluded.auth_type, enc_api_key=excluded.enc_api_key, enc_headers_json=excluded.enc_headers_json, max_tokens=excluded.max_tokens, temperature=excluded.temperature, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build provider settings upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("save provider settings: %w", err)
	}
	return nil
}
