package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// PluginEnablement returns the user's plugin toggle map. Plugins with
// no row are absent from the map; callers treat missing as enabled,
// matching the product default.
func (s *Store) PluginEnablement(ctx context.Context, userID int64) (map[string]bool, error) {
	q := s.sql.Select("plugin_name", "enabled").
		From("plugin_settings").
		Where(sq.Eq{"user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build plugin enablement query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("get plugin enablement: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		var enabled bool
		if err := rows.Scan(&name, &enabled); err != nil {
			return nil, fmt.Errorf("scan plugin setting row: %w", err)
		}
		out[name] = enabled
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plugin setting rows: %w", err)
	}
	return out, nil
}

func (s *Store) SetPluginEnabled(ctx context.Context, userID int64, pluginName string, enabled bool) error {
	q := s.sql.Insert("plugin_settings").
		Columns("user_id", "plugin_name", "enabled").
		Values(userID, pluginName, enabled).
		Suffix("ON CONFLICT(user_id, plugin_name) DO UPDATE SET enabled=excluded.enabled")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build plugin enable upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("set plugin enabled: %w", err)
	}
	return nil
}
