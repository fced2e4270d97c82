package types

// SuccessEnvelope wraps every successful JSON body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CheckoutSession is returned when a storefront checkout opens a payment
// session. Amounts are fixed two-decimal strings.
type CheckoutSession struct {
	ApprovalURL string `json:"approval_url"`
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
	Subtotal    string `json:"subtotal"`
	TotalTax    string `json:"total_tax"`
	Total       string `json:"total"`
}

type HealthStatus struct {
	Status string `json:"status"`
}
