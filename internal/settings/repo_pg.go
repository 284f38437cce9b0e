package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"policydesk-backend/internal/documents"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Settings, error) {
	const query = `
SELECT user_id, default_options, agent_name, agency_name, agency_phone, agency_email, footer_note, export_format, theme, created_at, updated_at
FROM user_settings
WHERE user_id = $1
LIMIT 1`
	var st Settings
	var optionsPayload []byte
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&st.UserID,
		&optionsPayload,
		&st.AgentName,
		&st.AgencyName,
		&st.AgencyPhone,
		&st.AgencyEmail,
		&st.FooterNote,
		&st.ExportFormat,
		&st.Theme,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, err
	}
	if len(optionsPayload) > 0 {
		if err := json.Unmarshal(optionsPayload, &st.DefaultOptions); err != nil {
			st.DefaultOptions = documents.ProcessingOptions{} // keep empty
		}
	}
	st.DefaultOptions = st.DefaultOptions.Normalize()
	return st, nil
}

func (r *PGRepo) Put(ctx context.Context, st Settings) error {
	const query = `
INSERT INTO user_settings (user_id, default_options, agent_name, agency_name, agency_phone, agency_email, footer_note, export_format, theme, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
ON CONFLICT (user_id) DO UPDATE SET
  default_options = EXCLUDED.default_options,
  agent_name = EXCLUDED.agent_name,
  agency_name = EXCLUDED.agency_name,
  agency_phone = EXCLUDED.agency_phone,
  agency_email = EXCLUDED.agency_email,
  footer_note = EXCLUDED.footer_note,
  export_format = EXCLUDED.export_format,
  theme = EXCLUDED.theme,
  updated_at = now()`
	optionsJSON, err := marshalJSONB(st.DefaultOptions)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		st.UserID,
		optionsJSON,
		st.AgentName,
		st.AgencyName,
		st.AgencyPhone,
		st.AgencyEmail,
		st.FooterNote,
		st.ExportFormat,
		st.Theme,
	)
	return err
}

func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

var _ Repo = (*PGRepo)(nil)
