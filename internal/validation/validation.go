// Package validation turns request payloads into domain values. Every
// function checks the whole payload and reports all violations at once.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned when a payload breaks its contract.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	return "invalid input: " + strings.Join(e.Messages(), "; ")
}

func (e *Errors) Messages() []string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return msgs
}

func (e *Errors) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *Errors) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

type ProductInput struct {
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Price       json.Number `json:"price" validate:"required,numeric"`
	Category    string      `json:"category" validate:"required,mongodb"`
	Stock       json.Number `json:"stock" validate:"required,number"`
	Image       string      `json:"image"`
	Brand       string      `json:"brand"`
}

type CartItemInput struct {
	Product  string      `json:"product" validate:"required,mongodb"`
	Quantity json.Number `json:"quantity" validate:"required,posint,maxqty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("posint", func(fl validator.FieldLevel) bool {
		n, err := strconv.ParseInt(fl.Field().String(), 10, 0)
		return err == nil && n > 0
	})
	_ = v.RegisterValidation("maxqty", func(fl validator.FieldLevel) bool {
		n, err := strconv.ParseInt(fl.Field().String(), 10, 0)
		return err == nil && n <= domain.MaxItemQuantity
	})
	return v
}

// Product checks a create or update payload. Both operations share the
// contract, so an update has to carry every required field again.
func Product(in ProductInput) (domain.Product, error) {
	errs := &Errors{}
	collect(errs, "", validate.Struct(in))

	p := domain.Product{
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.Category,
		Image:       in.Image,
		Brand:       in.Brand,
	}
	if !errs.has("price") {
		price, err := in.Price.Float64()
		if err != nil {
			errs.add("price", "price must be a number")
		}
		p.Price = price
	}
	if !errs.has("stock") {
		stock, err := strconv.Atoi(in.Stock.String())
		if err != nil {
			errs.add("stock", "stock must be a non-negative integer")
		}
		p.Stock = stock
	}

	if err := errs.orNil(); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// CartItem checks an add or update payload for a single cart line.
func CartItem(in CartItemInput) (domain.CartItem, error) {
	errs := &Errors{}
	item := cartItem(errs, "", in)
	if err := errs.orNil(); err != nil {
		return domain.CartItem{}, err
	}
	return item, nil
}

// CartItems checks a full item sequence. A product may appear only once.
func CartItems(in []CartItemInput) ([]domain.CartItem, error) {
	errs := &Errors{}
	items := make([]domain.CartItem, 0, len(in))
	seen := make(map[string]int, len(in))

	for i, raw := range in {
		prefix := fmt.Sprintf("items[%d].", i)
		item := cartItem(errs, prefix, raw)
		if raw.Product != "" {
			if first, ok := seen[raw.Product]; ok {
				errs.add(prefix+"product", fmt.Sprintf("%sproduct duplicates items[%d].product", prefix, first))
			} else {
				seen[raw.Product] = i
			}
		}
		items = append(items, item)
	}

	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return items, nil
}

// MergedQuantity rejects adding added units to an item that already holds
// current units when the total would pass domain.MaxItemQuantity.
func MergedQuantity(current, added int) error {
	errs := &Errors{}
	if current+added > domain.MaxItemQuantity {
		errs.add("quantity", fmt.Sprintf("quantity would raise the item to %d, at most %d allowed",
			current+added, domain.MaxItemQuantity))
	}
	return errs.orNil()
}

func cartItem(errs *Errors, prefix string, in CartItemInput) domain.CartItem {
	collect(errs, prefix, validate.Struct(in))
	if errs.has(prefix+"product") || errs.has(prefix+"quantity") {
		return domain.CartItem{}
	}
	qty, _ := strconv.Atoi(in.Quantity.String())
	return domain.CartItem{
		ProductID: in.Product,
		Quantity:  qty,
		AddedAt:   time.Now().UTC(),
	}
}

func collect(errs *Errors, prefix string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.add(prefix, err.Error())
		return
	}
	for _, fe := range verrs {
		field := prefix + fe.Field()
		errs.add(field, message(field, fe.Tag()))
	}
}

func message(field, tag string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "numeric":
		return field + " must be a number"
	case "number":
		return field + " must be a non-negative integer"
	case "posint":
		return field + " must be a positive integer"
	case "maxqty":
		return fmt.Sprintf("%s must be at most %d", field, domain.MaxItemQuantity)
	case "mongodb":
		return field + " must be a valid id"
	default:
		return field + " is invalid"
	}
}

func (e *Errors) has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
