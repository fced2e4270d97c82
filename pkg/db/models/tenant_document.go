package models

import "time"

// TenantDocument persists one tenant's JSON document under its store key.
type TenantDocument struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Body      string    `gorm:"column:body;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (TenantDocument) TableName() string { return "tenant_documents" }
