package models

import "time"

// TransformKind names a built-in value transform applied by a mapping rule.
type TransformKind string

const (
	TransformUppercase TransformKind = "uppercase"
	TransformLowercase TransformKind = "lowercase"
	TransformTrim      TransformKind = "trim"
	TransformNumber    TransformKind = "number"
	TransformDate      TransformKind = "date"
	TransformBoolean   TransformKind = "boolean"
)

// MappingRule maps one source field to one target field with an optional
// transform and default. Reverse application swaps the roles.
type MappingRule struct {
	SourceField  string        `json:"source_field" validate:"required"`
	TargetField  string        `json:"target_field" validate:"required"`
	Transform    TransformKind `json:"transform,omitempty"`
	DefaultValue string        `json:"default_value,omitempty"`
}

// EdiDocumentMap is an ordered rule list scoped to (tenant, document type,
// direction) and optionally to a specific partner. A partner-specific map
// wins over the tenant default; IsActive gates application.
type EdiDocumentMap struct {
	ID           string        `json:"id"`
	TenantID     string        `json:"tenant_id"`
	Name         string        `json:"name"`
	DocumentType DocumentType  `json:"document_type"`
	Direction    Direction     `json:"direction"`
	PartnerID    string        `json:"partner_id,omitempty"` // empty = tenant default
	Rules        []MappingRule `json:"rules"`
	IsDefault    bool          `json:"is_default"`
	IsActive     bool          `json:"is_active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
