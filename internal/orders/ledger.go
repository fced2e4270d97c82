package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/mycms-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

// FindByOrderID returns the order with id and its index, or index -1 when absent.
func FindByOrderID(orders []Order, id string) (Order, int) {
	for i, o := range orders {
		if o.OrderID == id {
			return o, i
		}
	}
	return Order{}, -1
}

// AssertNotExists fails with DUPLICATE_ORDER when id is already in orders.
func AssertNotExists(orders []Order, id string) error {
	if _, idx := FindByOrderID(orders, id); idx >= 0 {
		return pkgerrors.New(pkgerrors.CodeDuplicateOrder, fmt.Sprintf("order %s already exists", id)).
			WithDetails(map[string]any{"order_id": id})
	}
	return nil
}

// AppendPending returns a new slice with order appended in pending state.
func AppendPending(orders []Order, order Order) []Order {
	order.PaymentStatus = enums.PaymentStatusPending
	order.PayPalTxnID = ""
	out := make([]Order, len(orders), len(orders)+1)
	copy(out, orders)
	return append(out, order)
}

// Transition moves order id to target. Re-applying the current terminal
// status is a no-op that leaves the ledger unchanged. The input slice is
// never modified.
func Transition(orders []Order, id string, target enums.PaymentStatus, extra Extra) ([]Order, error) {
	if !target.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot transition to %q", target))
	}
	current, idx := FindByOrderID(orders, id)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, fmt.Sprintf("order %s not found", id)).
			WithDetails(map[string]any{"order_id": id})
	}

	out := make([]Order, len(orders))
	copy(out, orders)

	switch {
	case current.PaymentStatus == target:
		return out, nil
	case current.PaymentStatus.IsTerminal():
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("order %s is %s and cannot become %s", id, current.PaymentStatus, target)).
			WithDetails(map[string]any{"order_id": id, "from": current.PaymentStatus, "to": target})
	}

	current.PaymentStatus = target
	if txn := strings.TrimSpace(extra.TransactionID); txn != "" {
		current.PayPalTxnID = txn
	}
	out[idx] = current
	return out, nil
}
