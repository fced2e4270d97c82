package paypal

import (
	"errors"
	"fmt"
	"strings"

	sdk "github.com/plutov/paypal/v4"
)

// ProviderMessage returns the most specific message PayPal sent.
func ProviderMessage(apiErr *sdk.ErrorResponse) string {
	if apiErr == nil {
		return ""
	}
	issue := ""
	if len(apiErr.Details) > 0 {
		issue = apiErr.Details[0].Issue
	}
	switch {
	case apiErr.Message != "" && issue != "":
		return fmt.Sprintf("%s (%s)", apiErr.Message, issue)
	case apiErr.Message != "":
		return apiErr.Message
	case issue != "":
		return issue
	case apiErr.Name != "":
		return apiErr.Name
	}
	return fmt.Sprintf("paypal returned status %d", statusCode(apiErr))
}

// HasIssue reports whether err carries a PayPal error detail with the given issue code.
func HasIssue(err error, issue string) bool {
	var apiErr *sdk.ErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, d := range apiErr.Details {
		if strings.EqualFold(d.Issue, issue) {
			return true
		}
	}
	return false
}

func statusCode(apiErr *sdk.ErrorResponse) int {
	if apiErr == nil || apiErr.Response == nil {
		return 0
	}
	return apiErr.Response.StatusCode
}
