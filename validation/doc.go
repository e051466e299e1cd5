// Package validation checks struct tags with go-playground/validator and
// reports failures as INVALID_INPUT AppErrors.
//
//	type Definition struct {
//	    ID string `json:"id" validate:"required"`
//	}
//	if err := validation.Struct(def); err != nil { ... }
package validation
