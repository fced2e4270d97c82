package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/mycms-backend/pkg/config"
	"github.com/angelmondragon/mycms-backend/pkg/db/models"
)

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewSQLite(context.Background(), config.DBConfig{
		DSN:          filepath.Join(t.TempDir(), "mycms.db"),
		MaxOpenConns: 20,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewSQLiteCreatesTenantDocuments(t *testing.T) {
	client := newSQLiteClient(t)

	if !client.DB().Migrator().HasTable(&models.TenantDocument{}) {
		t.Fatal("expected tenant_documents table to exist")
	}
	doc := models.TenantDocument{Key: "user:owner@example.com", Body: `{"orders":[]}`, UpdatedAt: time.Now().UTC()}
	if err := client.DB().Create(&doc).Error; err != nil {
		t.Fatalf("insert document: %v", err)
	}

	var got models.TenantDocument
	if err := client.DB().Where(&models.TenantDocument{Key: doc.Key}).First(&got).Error; err != nil {
		t.Fatalf("load document: %v", err)
	}
	if got.Body != doc.Body {
		t.Fatalf("unexpected body %q", got.Body)
	}
}

func TestNewSQLiteLimitsWriters(t *testing.T) {
	client := newSQLiteClient(t)
	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected a single connection, got %d", got)
	}
}

func TestPing(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestConstructorsRequireDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for empty postgres DSN")
	}
	if _, err := NewSQLite(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}
