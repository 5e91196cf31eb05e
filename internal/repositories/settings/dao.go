package settings

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/models"
)

const settingsTable = "edi_settings"

var settingsStruct = database.NewStruct(new(SettingsRow))

type SettingsRow struct {
	TenantID            sql.NullString `db:"tenant_id"`
	ISAQualifier        sql.NullString `db:"isa_qualifier"`
	ISAID               sql.NullString `db:"isa_id"`
	GSID                sql.NullString `db:"gs_id"`
	AS2LocalID          sql.NullString `db:"as2_local_id"`
	Certificate         sql.NullString `db:"certificate"`
	PrivateKey          sql.NullString `db:"private_key"`
	AutoAcknowledge     sql.NullBool   `db:"auto_acknowledge"`
	AutoCreateRecords   sql.NullBool   `db:"auto_create_records"`
	DefaultFormat       sql.NullString `db:"default_format"`
	RetentionDays       sql.NullInt64  `db:"retention_days"`
	SFTPPollingEnabled  sql.NullBool   `db:"sftp_polling_enabled"`
	SFTPPollingInterval sql.NullInt64  `db:"sftp_polling_interval"`
	CreatedAt           sql.NullTime   `db:"created_at"`
	UpdatedAt           sql.NullTime   `db:"updated_at"`
}

func FromSettings(s models.EdiSettings) *SettingsRow {
	return &SettingsRow{
		TenantID:            sql.NullString{String: s.TenantID, Valid: s.TenantID != ""},
		ISAQualifier:        sql.NullString{String: s.ISAQualifier, Valid: s.ISAQualifier != ""},
		ISAID:               sql.NullString{String: s.ISAID, Valid: s.ISAID != ""},
		GSID:                sql.NullString{String: s.GSID, Valid: s.GSID != ""},
		AS2LocalID:          sql.NullString{String: s.AS2LocalID, Valid: s.AS2LocalID != ""},
		Certificate:         sql.NullString{String: s.Certificate, Valid: s.Certificate != ""},
		PrivateKey:          sql.NullString{String: s.PrivateKey, Valid: s.PrivateKey != ""},
		AutoAcknowledge:     sql.NullBool{Bool: s.AutoAcknowledge, Valid: true},
		AutoCreateRecords:   sql.NullBool{Bool: s.AutoCreateRecords, Valid: true},
		DefaultFormat:       sql.NullString{String: string(s.DefaultFormat), Valid: s.DefaultFormat != ""},
		RetentionDays:       sql.NullInt64{Int64: int64(s.RetentionDays), Valid: s.RetentionDays != 0},
		SFTPPollingEnabled:  sql.NullBool{Bool: s.SFTPPollingEnabled, Valid: true},
		SFTPPollingInterval: sql.NullInt64{Int64: int64(s.SFTPPollingInterval), Valid: s.SFTPPollingInterval != 0},
		CreatedAt:           sql.NullTime{Time: s.CreatedAt, Valid: s.CreatedAt != time.Time{}},
		UpdatedAt:           sql.NullTime{Time: s.UpdatedAt, Valid: s.UpdatedAt != time.Time{}},
	}
}

func ToSettings(row *SettingsRow) models.EdiSettings {
	return models.EdiSettings{
		TenantID:            row.TenantID.String,
		ISAQualifier:        row.ISAQualifier.String,
		ISAID:               row.ISAID.String,
		GSID:                row.GSID.String,
		AS2LocalID:          row.AS2LocalID.String,
		Certificate:         row.Certificate.String,
		PrivateKey:          row.PrivateKey.String,
		AutoAcknowledge:     row.AutoAcknowledge.Bool,
		AutoCreateRecords:   row.AutoCreateRecords.Bool,
		DefaultFormat:       models.WireFormat(row.DefaultFormat.String),
		RetentionDays:       int(row.RetentionDays.Int64),
		SFTPPollingEnabled:  row.SFTPPollingEnabled.Bool,
		SFTPPollingInterval: int(row.SFTPPollingInterval.Int64),
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
	}
}
