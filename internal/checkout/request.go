package checkout

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

// Request is the buyer's checkout submission.
type Request struct {
	OrderID  string         `json:"orderId" validate:"required"`
	Date     string         `json:"date" validate:"required"`
	Customer *CustomerInput `json:"customer" validate:"required"`
	Shipping *ShippingInput `json:"shipping" validate:"required"`
	Items    []ItemInput    `json:"items" validate:"required,min=1,dive"`
}

type CustomerInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type ShippingInput struct {
	Address1   string `json:"address1" validate:"required"`
	Address2   string `json:"address2"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

type ItemInput struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Image     string          `json:"image"`
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Tax       decimal.Decimal `json:"tax"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// normalize trims free-text fields in place.
func (r *Request) normalize() {
	r.OrderID = strings.TrimSpace(r.OrderID)
	r.Date = strings.TrimSpace(r.Date)
	if r.Customer != nil {
		r.Customer.Name = strings.TrimSpace(r.Customer.Name)
		r.Customer.Email = strings.TrimSpace(r.Customer.Email)
	}
	if r.Shipping != nil {
		s := r.Shipping
		s.Address1 = strings.TrimSpace(s.Address1)
		s.Address2 = strings.TrimSpace(s.Address2)
		s.City = strings.TrimSpace(s.City)
		s.Province = strings.TrimSpace(s.Province)
		s.PostalCode = strings.TrimSpace(s.PostalCode)
		s.Country = strings.ToUpper(strings.TrimSpace(s.Country))
	}
	for i := range r.Items {
		r.Items[i].ProductID = strings.TrimSpace(r.Items[i].ProductID)
		r.Items[i].Name = strings.TrimSpace(r.Items[i].Name)
	}
}

// Validate reports every missing or malformed field in a single VALIDATION_ERROR.
func (r *Request) Validate() error {
	r.normalize()
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout request")
	}

	var missing, invalid []string
	details := map[string]string{}
	for _, fe := range errs {
		field := fieldPath(fe)
		switch fe.Tag() {
		case "required":
			missing = append(missing, field)
			details[field] = "is required"
		case "min":
			missing = append(missing, field)
			details[field] = "must not be empty"
		case "gt":
			invalid = append(invalid, field)
			details[field] = "must be positive"
		case "email":
			invalid = append(invalid, field)
			details[field] = "must be a valid email"
		case "iso3166_1_alpha2":
			invalid = append(invalid, field)
			details[field] = "must be an ISO 3166-1 alpha-2 country code"
		default:
			invalid = append(invalid, field)
			details[field] = "is invalid"
		}
	}
	sort.Strings(missing)
	sort.Strings(invalid)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, ", "))
	}
	return pkgerrors.New(pkgerrors.CodeValidation, strings.Join(parts, "; ")).WithDetails(details)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func (r *Request) lineItems() []orders.LineItem {
	items := make([]orders.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, orders.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Tax:       it.Tax,
		})
	}
	return items
}

func (r *Request) shipping() *orders.Shipping {
	s := r.Shipping
	return &orders.Shipping{
		Address1:   s.Address1,
		Address2:   s.Address2,
		City:       s.City,
		Province:   s.Province,
		PostalCode: s.PostalCode,
		Country:    s.Country,
	}
}

func (r *Request) customer() orders.Customer {
	return orders.Customer{Name: r.Customer.Name, Email: r.Customer.Email}
}
