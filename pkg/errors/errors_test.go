package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeTenantNotFound, status: http.StatusNotFound, publicMsg: "tenant not found"},
		{code: CodeOrderNotFound, status: http.StatusNotFound, publicMsg: "order not found"},
		{code: CodeDuplicateOrder, status: http.StatusConflict, publicMsg: "order already exists", detailsOK: true},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, publicMsg: "payment status transition disallowed", detailsOK: true},
		{code: CodeMissingTemplate, status: http.StatusUnprocessableEntity, publicMsg: "theme bundle is missing a required template", detailsOK: true},
		{code: CodeProvider, status: http.StatusBadGateway, publicMsg: "payment provider error", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeOrderNotFound, "order 1001 not found")
	if got := As(err); got == nil || got.Code() != CodeOrderNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New(CodeDuplicateOrder, "order 1001 already exists"))
	if !IsCode(err, CodeDuplicateOrder) {
		t.Fatalf("expected duplicate order code in chain")
	}
	if IsCode(err, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("untyped errors carry no code")
	}
}

func TestDumpIncludesChainAndPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", TableName: "tenant_documents", Message: "duplicate key"}
	err := Wrap(CodeDependency, fmt.Errorf("upsert: %w", pgErr), "persist tenant document")

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(dump.Chain))
	}
	if dump.Backend != "postgres" || dump.BackendCode != "23505" || dump.Table != "tenant_documents" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if fields := dump.Fields(); fields["store_code"] != "23505" {
		t.Fatalf("expected store_code in log fields, got %v", fields)
	}
}

func TestDumpIncludesMongoCommandError(t *testing.T) {
	err := Wrap(CodeDependency, mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, "document store put failed")

	dump := Dump(err)
	if dump.Backend != "mongo" || dump.BackendCode != "11000" {
		t.Fatalf("unexpected mongo fields %+v", dump)
	}
	fields := Dump(New(CodeValidation, "bad")).Fields()
	if _, ok := fields["store_backend"]; ok {
		t.Fatalf("plain errors should not carry store fields: %v", fields)
	}
}
