package enums

import "testing"

func TestParsePaymentStatus(t *testing.T) {
	for _, raw := range []string{"pending", "success", "cancelled"} {
		got, err := ParsePaymentStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got.String() != raw || !got.IsValid() {
			t.Fatalf("unexpected status %q", got)
		}
	}
	if _, err := ParsePaymentStatus("paid"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	if PaymentStatusPending.IsTerminal() {
		t.Fatalf("pending should not be terminal")
	}
	if !PaymentStatusSuccess.IsTerminal() || !PaymentStatusCancelled.IsTerminal() {
		t.Fatalf("success and cancelled should be terminal")
	}
}

func TestParsePaymentMode(t *testing.T) {
	cases := map[string]PaymentMode{
		"live":    PaymentModeLive,
		" LIVE ":  PaymentModeLive,
		"sandbox": PaymentModeSandbox,
		"":        PaymentModeSandbox,
		"other":   PaymentModeSandbox,
	}
	for in, want := range cases {
		if got := ParsePaymentMode(in); got != want {
			t.Fatalf("ParsePaymentMode(%q) = %q, want %q", in, got, want)
		}
	}
	if err := ValidatePaymentMode("other"); err == nil {
		t.Fatalf("expected invalid mode error")
	}
	if err := ValidatePaymentMode("Live"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
