package sales

import (
	"github.com/go-playground/validator/v10"

	"github.com/mpi-retail/mpi/internal/shared"
)

var validate = validator.New()

// CreateSaleInput is the POS order submission. Items reference products or
// bundles by id; prices are never trusted from the client.
type CreateSaleInput struct {
	OutletID      int64           `json:"outlet_id" validate:"required,gt=0"`
	EmployeeID    int64           `json:"employee_id" validate:"required,gt=0"`
	CustomerID    *int64          `json:"customer_id" validate:"omitempty,gt=0"`
	ShiftID       *int64          `json:"shift_id" validate:"omitempty,gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash qris transfer card"`
	Tax           float64         `json:"tax" validate:"gte=0"`
	Discount      float64         `json:"discount" validate:"gte=0"`
	CashReceived  float64         `json:"cash_received" validate:"gte=0"`
	Note          string          `json:"note" validate:"max=500"`
	Items         []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// SaleItemInput is one submitted order line.
type SaleItemInput struct {
	Kind  string  `json:"kind" validate:"required,oneof=product bundle"`
	RefID int64   `json:"ref_id" validate:"required,gt=0"`
	Qty   float64 `json:"qty" validate:"required,gt=0"`
}

// Validate collects every violation in the submission rather than stopping at
// the first, so the register can surface the full list at once.
func (in CreateSaleInput) Validate() error {
	verr := &shared.ValidationError{}
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); ok {
			for _, fe := range fieldErrs {
				verr.Add(fe.Namespace(), violationMessage(fe))
			}
		} else {
			return err
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "invalid"
	}
}
