package partner

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/models"
)

const partnerTable = "edi_trading_partners"

var partnerStruct = database.NewStruct(new(PartnerRow))

type PartnerRow struct {
	ID                  sql.NullString                    `db:"id"`
	TenantID            sql.NullString                    `db:"tenant_id"`
	Code                sql.NullString                    `db:"code"`
	Name                sql.NullString                    `db:"name"`
	PartnerType         sql.NullString                    `db:"partner_type"`
	CommunicationMethod sql.NullString                    `db:"communication_method"`
	DefaultFormat       sql.NullString                    `db:"default_format"`
	DefaultDocumentType sql.NullString                    `db:"default_document_type"`
	ISAQualifier        sql.NullString                    `db:"isa_qualifier"`
	ISAID               sql.NullString                    `db:"isa_id"`
	GSID                sql.NullString                    `db:"gs_id"`
	AS2                 database.JSONB[models.AS2Config]  `db:"as2_config"`
	SFTP                database.JSONB[models.SFTPConfig] `db:"sftp_config"`
	Status              sql.NullString                    `db:"status"`
	CreatedAt           sql.NullTime                      `db:"created_at"`
	UpdatedAt           sql.NullTime                      `db:"updated_at"`
}

func FromPartner(p models.TradingPartner) *PartnerRow {
	return &PartnerRow{
		ID:                  sql.NullString{String: p.ID, Valid: p.ID != ""},
		TenantID:            sql.NullString{String: p.TenantID, Valid: p.TenantID != ""},
		Code:                sql.NullString{String: p.Code, Valid: p.Code != ""},
		Name:                sql.NullString{String: p.Name, Valid: p.Name != ""},
		PartnerType:         sql.NullString{String: string(p.PartnerType), Valid: p.PartnerType != ""},
		CommunicationMethod: sql.NullString{String: string(p.CommunicationMethod), Valid: p.CommunicationMethod != ""},
		DefaultFormat:       sql.NullString{String: string(p.DefaultFormat), Valid: p.DefaultFormat != ""},
		DefaultDocumentType: sql.NullString{String: string(p.DefaultDocumentType), Valid: p.DefaultDocumentType != ""},
		ISAQualifier:        sql.NullString{String: p.ISAQualifier, Valid: p.ISAQualifier != ""},
		ISAID:               sql.NullString{String: p.ISAID, Valid: p.ISAID != ""},
		GSID:                sql.NullString{String: p.GSID, Valid: p.GSID != ""},
		AS2:                 database.JSONB[models.AS2Config]{Data: p.AS2},
		SFTP:                database.JSONB[models.SFTPConfig]{Data: p.SFTP},
		Status:              sql.NullString{String: string(p.Status), Valid: p.Status != ""},
		CreatedAt:           sql.NullTime{Time: p.CreatedAt, Valid: p.CreatedAt != time.Time{}},
		UpdatedAt:           sql.NullTime{Time: p.UpdatedAt, Valid: p.UpdatedAt != time.Time{}},
	}
}

func ToPartner(row *PartnerRow) models.TradingPartner {
	return models.TradingPartner{
		ID:                  row.ID.String,
		TenantID:            row.TenantID.String,
		Code:                row.Code.String,
		Name:                row.Name.String,
		PartnerType:         models.PartnerType(row.PartnerType.String),
		CommunicationMethod: models.CommunicationMethod(row.CommunicationMethod.String),
		DefaultFormat:       models.WireFormat(row.DefaultFormat.String),
		DefaultDocumentType: models.DocumentType(row.DefaultDocumentType.String),
		ISAQualifier:        row.ISAQualifier.String,
		ISAID:               row.ISAID.String,
		GSID:                row.GSID.String,
		AS2:                 row.AS2.Data,
		SFTP:                row.SFTP.Data,
		Status:              models.PartnerStatus(row.Status.String),
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
	}
}
