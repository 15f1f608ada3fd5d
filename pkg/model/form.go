package model

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validation messages shown inline in the product form.
const (
	MsgRequired    = "Required"
	MsgPositive    = "Must be > 0"
	MsgNonNegative = "Must be >= 0"
	MsgNumber      = "Must be a number"
	MsgWholeNumber = "Must be a whole number"
)

// ProductForm holds the product form fields exactly as typed.
type ProductForm struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	Stock    string `json:"stock"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
}

// NewProductForm returns the empty create form.
func NewProductForm() ProductForm {
	return ProductForm{Price: "1", Stock: "0"}
}

// FormFromProduct pre-fills the edit form.
func FormFromProduct(p Product) ProductForm {
	return ProductForm{
		Title:    p.Title,
		Price:    strconv.FormatFloat(p.Price, 'f', -1, 64),
		Stock:    strconv.Itoa(p.Stock),
		Category: p.Category,
		Brand:    p.Brand,
	}
}

type productDraft struct {
	Title    string  `json:"title" validate:"required"`
	Price    float64 `json:"price" validate:"gt=0"`
	Stock    int     `json:"stock" validate:"gte=0"`
	Category string  `json:"category" validate:"required"`
	Brand    string  `json:"brand"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Parse coerces the typed values and validates them. On failure the returned
// error is a FieldErrors.
func (f ProductForm) Parse() (ProductInput, error) {
	errs := FieldErrors{}
	d := productDraft{
		Title:    strings.TrimSpace(f.Title),
		Category: strings.TrimSpace(f.Category),
		Brand:    strings.TrimSpace(f.Brand),
	}

	if price, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64); err != nil {
		errs["price"] = MsgNumber
	} else {
		d.Price = price
	}

	stockRaw := strings.TrimSpace(f.Stock)
	if stock, err := strconv.Atoi(stockRaw); err == nil {
		d.Stock = stock
	} else if _, ferr := strconv.ParseFloat(stockRaw, 64); ferr == nil {
		errs["stock"] = MsgWholeNumber
	} else {
		errs["stock"] = MsgNumber
	}

	if err := formValidator().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return ProductInput{}, err
		}
		for _, fe := range verrs {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = messageFor(fe.Tag())
		}
	}

	if len(errs) > 0 {
		return ProductInput{}, errs
	}
	return ProductInput(d), nil
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return MsgRequired
	case "gt":
		return MsgPositive
	case "gte":
		return MsgNonNegative
	default:
		return "Invalid value"
	}
}
