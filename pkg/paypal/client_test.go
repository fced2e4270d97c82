package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	sdk "github.com/plutov/paypal/v4"

	"github.com/angelmondragon/mycms-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

var testCreds = Credentials{ClientID: "client-id", ClientSecret: "client-secret"}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PayPalConfig{SandboxBaseURL: srv.URL, LiveBaseURL: srv.URL + "/live"}, nil)
}

func tokenHandler(t *testing.T, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant type %q", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	}
}

func sampleOrderRequest() OrderRequest {
	return OrderRequest{
		Intent: IntentCapture,
		PurchaseUnits: []sdk.PurchaseUnitRequest{{
			ReferenceID: "1001",
			Amount: &sdk.PurchaseUnitAmount{Currency: "USD", Value: "27.00", Breakdown: &sdk.PurchaseUnitAmountBreakdown{
				ItemTotal: Amount("USD", "25.00"),
				TaxTotal:  Amount("USD", "2.00"),
			}},
		}},
		ApplicationContext: &sdk.ApplicationContext{ReturnURL: "https://api.example/success", CancelURL: "https://api.example/cancel"},
	}
}

type createdOrderBody struct {
	Intent        string                    `json:"intent"`
	PurchaseUnits []sdk.PurchaseUnitRequest `json:"purchase_units"`
}

func TestCreateOrderSendsIntentAndReturnsApprovalURL(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		var body createdOrderBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Intent != IntentCapture {
			t.Errorf("unexpected intent %q", body.Intent)
		}
		if len(body.PurchaseUnits) != 1 || body.PurchaseUnits[0].Amount.Breakdown.TaxTotal.Value != "2.00" {
			t.Errorf("unexpected purchase units %+v", body.PurchaseUnits)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"S1","status":"CREATED","links":[{"href":"https://pay/self","rel":"self"},{"href":"https://pay/S1","rel":"approve"}]}`)
	})
	client := newTestClient(t, mux)

	order, err := client.CreateOrder(context.Background(), testCreds, sampleOrderRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "S1" || ApprovalURL(order) != "https://pay/S1" {
		t.Fatalf("unexpected order %+v", order)
	}

	if _, err := client.CreateOrder(context.Background(), testCreds, sampleOrderRequest()); err != nil {
		t.Fatalf("second create order: %v", err)
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("expected the merchant token to be reused, got %d token calls", got)
	}
}

func TestCaptureOrderExtractsTransactionID(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/v2/checkout/orders/S1/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"S1","status":"COMPLETED","purchase_units":[{"reference_id":"1001","payments":{"captures":[{"id":"T1","status":"COMPLETED"}]}}]}`)
	})
	client := newTestClient(t, mux)

	resp, err := client.CaptureOrder(context.Background(), testCreds, "S1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if CaptureID(resp) != "T1" || resp.Status != "COMPLETED" {
		t.Fatalf("unexpected capture %+v", resp)
	}
}

func TestCaptureOrderMapsProviderError(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/v2/checkout/orders/S1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"name":"UNPROCESSABLE_ENTITY","message":"The requested action could not be performed.","debug_id":"dbg","details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`)
	})
	client := newTestClient(t, mux)

	_, err := client.CaptureOrder(context.Background(), testCreds, "S1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	var apiErr *sdk.ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected sdk error response in chain")
	}
	if !HasIssue(err, IssueOrderAlreadyCaptured) {
		t.Fatalf("expected ORDER_ALREADY_CAPTURED issue, got %+v", apiErr.Details)
	}
	if msg := pkgerrors.As(err).Message(); msg != "The requested action could not be performed. (ORDER_ALREADY_CAPTURED)" {
		t.Fatalf("unexpected provider message %q", msg)
	}
	if details, _ := pkgerrors.As(err).Details().(map[string]any); details["debug_id"] != "dbg" {
		t.Fatalf("expected debug id in details, got %+v", details)
	}
}

func TestTokenRejectionIsProviderError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid_client","error_description":"Client Authentication failed"}`)
	})
	client := newTestClient(t, mux)

	_, err := client.CreateOrder(context.Background(), testCreds, sampleOrderRequest())
	if !pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg != "paypal returned status 401" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestMissingCredentialsFailBeforeAnyCall(t *testing.T) {
	var hits int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	if _, err := client.CreateOrder(context.Background(), Credentials{ClientID: "id"}, sampleOrderRequest()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing secret, got %v", err)
	}
	if _, err := client.CaptureOrder(context.Background(), testCreds, " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank order id, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Fatalf("expected no http calls, got %d", got)
	}
}

func TestLiveCredentialsUseLiveBase(t *testing.T) {
	var liveTokens int32
	mux := http.NewServeMux()
	mux.HandleFunc("/live/v1/oauth2/token", tokenHandler(t, &liveTokens))
	mux.HandleFunc("/live/v2/checkout/orders/S1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"S1","status":"COMPLETED"}`)
	})
	client := newTestClient(t, mux)

	live := testCreds
	live.Live = true
	if _, err := client.CaptureOrder(context.Background(), live, "S1"); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if got := atomic.LoadInt32(&liveTokens); got != 1 {
		t.Fatalf("expected live endpoint to be used, got %d live token calls", got)
	}
}

func TestNewClientFallsBackToSDKEndpoints(t *testing.T) {
	client := NewClient(config.PayPalConfig{}, nil)
	if client.sandboxURL != sdk.APIBaseSandBox || client.liveURL != sdk.APIBaseLive {
		t.Fatalf("unexpected endpoints %q %q", client.sandboxURL, client.liveURL)
	}
}

func TestResponseHelpersTolerateMissingFields(t *testing.T) {
	if ApprovalURL(nil) != "" || CaptureID(nil) != "" {
		t.Fatalf("nil responses should yield empty values")
	}
	if got := ApprovalURL(&sdk.Order{Links: []sdk.Link{{Rel: "payer-action", Href: "https://pay/action"}}}); got != "https://pay/action" {
		t.Fatalf("expected payer-action fallback, got %q", got)
	}
	resp := &sdk.CaptureOrderResponse{PurchaseUnits: []sdk.CapturedPurchaseUnit{{}}}
	if CaptureID(resp) != "" {
		t.Fatalf("missing payments should yield empty capture id")
	}
	resp.PurchaseUnits[0].Payments = &sdk.CapturedPayments{}
	if CaptureID(resp) != "" {
		t.Fatalf("empty captures should yield empty capture id")
	}
}

func TestProviderMessagePrefersMessageThenIssue(t *testing.T) {
	if got := ProviderMessage(&sdk.ErrorResponse{Details: []sdk.ErrorResponseDetail{{Issue: "INSTRUMENT_DECLINED"}}}); got != "INSTRUMENT_DECLINED" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := ProviderMessage(&sdk.ErrorResponse{Name: "INTERNAL_SERVER_ERROR"}); got != "INTERNAL_SERVER_ERROR" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := ProviderMessage(&sdk.ErrorResponse{Response: &http.Response{StatusCode: http.StatusBadGateway}}); got != "paypal returned status 502" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDebugRaisesCallLogsToInfo(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/v2/checkout/orders/S1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"S1","status":"COMPLETED"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	for _, debug := range []bool{false, true} {
		buf := &bytes.Buffer{}
		logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("info"), Output: buf})
		client := NewClient(config.PayPalConfig{SandboxBaseURL: srv.URL, Debug: debug}, logg)
		if _, err := client.CaptureOrder(context.Background(), testCreds, "S1"); err != nil {
			t.Fatalf("capture: %v", err)
		}
		logged := strings.Contains(buf.String(), "paypal response")
		if logged != debug {
			t.Fatalf("debug=%v: response logged=%v\n%s", debug, logged, buf.String())
		}
		if strings.Contains(buf.String(), "client-secret") || strings.Contains(buf.String(), "tok-1") {
			t.Fatalf("credentials leaked into logs")
		}
	}
}
