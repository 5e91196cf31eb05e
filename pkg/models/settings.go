package models

import "time"

// MaskedKeySentinel is what API consumers see instead of the stored private
// key. Submitting the sentinel back on a settings write means "leave the
// stored key unchanged".
const MaskedKeySentinel = "********"

// EdiSettings is the single per-tenant configuration record. When a tenant
// has never saved settings, DefaultSettings provides the virtual record.
type EdiSettings struct {
	TenantID            string     `json:"tenant_id"`
	ISAQualifier        string     `json:"isa_qualifier"`
	ISAID               string     `json:"isa_id"`
	GSID                string     `json:"gs_id"`
	AS2LocalID          string     `json:"as2_local_id"`
	Certificate         string     `json:"certificate,omitempty"` // PEM, company public cert
	PrivateKey          string     `json:"private_key,omitempty"` // PEM, masked on read
	AutoAcknowledge     bool       `json:"auto_acknowledge"`
	AutoCreateRecords   bool       `json:"auto_create_records"`
	DefaultFormat       WireFormat `json:"default_format"`
	RetentionDays       int        `json:"retention_days"`
	SFTPPollingEnabled  bool       `json:"sftp_polling_enabled"`
	SFTPPollingInterval int        `json:"sftp_polling_interval"` // seconds, fallback when a partner has no schedule
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// DefaultSettings returns the virtual settings record for tenants that have
// never saved one.
func DefaultSettings(tenantID string) *EdiSettings {
	return &EdiSettings{
		TenantID:            tenantID,
		ISAQualifier:        "ZZ",
		AutoAcknowledge:     false,
		AutoCreateRecords:   true,
		DefaultFormat:       FormatX12,
		RetentionDays:       365,
		SFTPPollingEnabled:  false,
		SFTPPollingInterval: 300,
	}
}

// Masked returns a copy safe to return to API consumers: the private key is
// replaced with the sentinel when present.
func (s *EdiSettings) Masked() *EdiSettings {
	out := *s
	if out.PrivateKey != "" {
		out.PrivateKey = MaskedKeySentinel
	}
	return &out
}
