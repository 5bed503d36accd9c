// Package validate shape-checks untrusted LLM payloads against the canonical
// analysis structure. It is purely structural: unknown enum values pass here
// and are coerced later by the repair engine.
package validate

import (
	"fmt"

	"github.com/sells-group/compintel/internal/model"
)

// Validate checks an arbitrary decoded JSON value against the analysis shape
// and reports path-qualified errors. It never panics; an internal failure
// collapses to a single generic error entry.
func Validate(v any) (res model.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.ValidationResult{
				Valid:  false,
				Errors: []model.FieldError{{Message: "Invalid analysis data structure"}},
			}
		}
	}()

	var errs []model.FieldError

	root, ok := v.(map[string]any)
	if !ok {
		return model.ValidationResult{
			Valid:  false,
			Errors: []model.FieldError{{Message: "Invalid data structure"}},
		}
	}

	entity, ok := root["entity"].(map[string]any)
	if !ok {
		errs = append(errs, model.FieldError{
			Path:    "entity",
			Message: "entity is required and must be an object",
		})
		return result(errs)
	}

	errs = append(errs, checkName(entity, "entity")...)
	errs = append(errs, checkDetails(entity, "entity")...)

	if rawProducts, present := entity["products"]; present {
		products, ok := rawProducts.([]any)
		if !ok {
			errs = append(errs, model.FieldError{
				Path:    "entity.products",
				Message: "products must be an array",
			})
		} else {
			for i, p := range products {
				errs = append(errs, checkProduct(p, fmt.Sprintf("entity.products[%d]", i))...)
			}
		}
	}

	return result(errs)
}

func result(errs []model.FieldError) model.ValidationResult {
	return model.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func checkProduct(v any, path string) []model.FieldError {
	if v == nil {
		return nil
	}
	product, ok := v.(map[string]any)
	if !ok {
		return []model.FieldError{{Path: path, Message: "product must be an object"}}
	}

	errs := checkName(product, path)
	errs = append(errs, checkDetails(product, path)...)

	if rawCompetitors, present := product["competitors"]; present {
		competitors, ok := rawCompetitors.([]any)
		if !ok {
			errs = append(errs, model.FieldError{
				Path:    path + ".competitors",
				Message: "competitors must be an array",
			})
			return errs
		}
		for i, c := range competitors {
			errs = append(errs, checkCompetitor(c, fmt.Sprintf("%s.competitors[%d]", path, i))...)
		}
	}
	return errs
}

func checkCompetitor(v any, path string) []model.FieldError {
	if v == nil {
		return nil
	}
	competitor, ok := v.(map[string]any)
	if !ok {
		return []model.FieldError{{Path: path, Message: "competitor must be an object"}}
	}
	errs := checkName(competitor, path)
	return append(errs, checkDetails(competitor, path)...)
}

// checkName requires a string name_brand. The camelCase alias is accepted
// here so legacy payloads fail repair-relevant checks only, not validation.
func checkName(obj map[string]any, path string) []model.FieldError {
	if _, ok := obj["name_brand"].(string); ok {
		return nil
	}
	if _, ok := obj["nameBrand"].(string); ok {
		return nil
	}
	return []model.FieldError{{
		Path:    path + ".name_brand",
		Message: "name_brand is required and must be a string",
	}}
}

func checkDetails(obj map[string]any, path string) []model.FieldError {
	raw, present := obj["details"]
	if !present {
		return nil
	}
	details, ok := raw.([]any)
	if !ok {
		return []model.FieldError{{
			Path:    path + ".details",
			Message: "details must be an array",
		}}
	}
	var errs []model.FieldError
	for i, d := range details {
		if d == nil {
			continue
		}
		if _, ok := d.(map[string]any); !ok {
			errs = append(errs, model.FieldError{
				Path:    fmt.Sprintf("%s.details[%d]", path, i),
				Message: "detail must be an object",
			})
		}
	}
	return errs
}
