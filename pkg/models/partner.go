package models

import "time"

// PartnerType classifies the business relationship with a counterparty.
type PartnerType string

const (
	PartnerTypeCustomer PartnerType = "customer"
	PartnerTypeVendor   PartnerType = "vendor"
	PartnerTypeBoth     PartnerType = "both"
)

// CommunicationMethod is the channel a partner exchanges documents over.
type CommunicationMethod string

const (
	CommMethodManual CommunicationMethod = "manual"
	CommMethodAPI    CommunicationMethod = "api"
	CommMethodSFTP   CommunicationMethod = "sftp"
	CommMethodAS2    CommunicationMethod = "as2"
	CommMethodEmail  CommunicationMethod = "email"
)

// PartnerStatus gates whether exchanges may be created for a partner.
type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusInactive  PartnerStatus = "inactive"
	PartnerStatusTesting   PartnerStatus = "testing"
	PartnerStatusSuspended PartnerStatus = "suspended"
)

// AS2Config holds the AS2 identifiers and crypto material for one partner.
// Before an AS2 send is attempted the URL and partner certificate must be
// resolvable; the transport rejects the send as a configuration error
// otherwise.
type AS2Config struct {
	URL                 string `json:"url,omitempty"`
	LocalID             string `json:"local_id,omitempty"`
	PartnerID           string `json:"partner_id,omitempty"`
	PartnerCertificate  string `json:"partner_certificate,omitempty"` // PEM
	EncryptionAlgorithm string `json:"encryption_algorithm,omitempty"`
	SignatureAlgorithm  string `json:"signature_algorithm,omitempty"`
	RequestMDN          bool   `json:"request_mdn,omitempty"`
}

// SFTPConfig holds the connection parameters for a partner's SFTP endpoint.
type SFTPConfig struct {
	Host            string `json:"host,omitempty"`
	Port            int    `json:"port,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	PrivateKey      string `json:"private_key,omitempty"` // PEM, used instead of password when set
	RemoteInboxDir  string `json:"remote_inbox_dir,omitempty"`
	RemoteOutboxDir string `json:"remote_outbox_dir,omitempty"`
	ArchiveDir      string `json:"archive_dir,omitempty"`
	PollSchedule    string `json:"poll_schedule,omitempty"` // cron expression
}

// TradingPartner is the identity and channel configuration for one
// counterparty. Partner code is unique per tenant.
type TradingPartner struct {
	ID                  string              `json:"id"`
	TenantID            string              `json:"tenant_id"`
	Code                string              `json:"code"`
	Name                string              `json:"name"`
	PartnerType         PartnerType         `json:"partner_type"`
	CommunicationMethod CommunicationMethod `json:"communication_method"`
	DefaultFormat       WireFormat          `json:"default_format"`
	// DefaultDocumentType is assumed for received payloads that carry no
	// type marker of their own (non-X12 mailbox files). X12 interchanges
	// declare their type in ST01 and ignore it.
	DefaultDocumentType DocumentType `json:"default_document_type,omitempty"`
	ISAQualifier        string       `json:"isa_qualifier"`
	ISAID               string              `json:"isa_id"`
	GSID                string              `json:"gs_id"`
	AS2                 AS2Config           `json:"as2"`
	SFTP                SFTPConfig          `json:"sftp"`
	Status              PartnerStatus       `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// IsActive reports whether exchanges may be created against this partner.
// Testing partners are allowed so that onboarding flows can be exercised.
func (p *TradingPartner) IsActive() bool {
	return p.Status == PartnerStatusActive || p.Status == PartnerStatusTesting
}

// Pollable reports whether the scheduler should maintain a polling timer
// for this partner.
func (p *TradingPartner) Pollable() bool {
	return p.CommunicationMethod == CommMethodSFTP && p.SFTP.PollSchedule != "" && p.IsActive()
}
