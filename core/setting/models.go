package setting

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
)

// Grouped maps lower-case category names to their settings.
type Grouped map[string]map[string]Value

func (g Grouped) set(category, key string, val Value) {
	c := normalizeCategory(category)
	if g[c] == nil {
		g[c] = make(map[string]Value)
	}
	g[c][key] = val
}

// Setting is a persisted setting; Category is stored upper-cased.
type Setting struct {
	Category  string
	Key       string
	Value     Value
	UpdatedAt time.Time
}

// Entry is a single setting to create or replace.
type Entry struct {
	Category string `json:"category" validate:"required,notblank,max=50"`
	Key      string `json:"key" validate:"required,notblank,max=100"`
	Value    Value  `json:"value"`
}

// BulkUpdate is the payload to create or replace many settings at once.
type BulkUpdate struct {
	Settings []Entry `json:"settings" validate:"required,min=1,max=500,dive"`
}

func (bu *BulkUpdate) Validate(validate *validator.Validate) error {
	for i := range bu.Settings {
		bu.Settings[i].Category = core.CleanString(bu.Settings[i].Category)
		bu.Settings[i].Key = core.CleanString(bu.Settings[i].Key)
	}
	if err := validate.Struct(bu); err != nil {
		return err
	}

	var errs []core.FieldError
	for i, e := range bu.Settings {
		if e.Value.IsZero() {
			errs = append(errs, core.FieldError{Field: fieldName(i, "value"), Error: "this field is required"})
		}
	}
	if len(errs) > 0 {
		return core.NewValidationError(nil, errs...)
	}
	return nil
}

func fieldName(i int, name string) string {
	return "settings[" + strconv.Itoa(i) + "]." + name
}

func normalizeCategory(category string) string {
	return strings.ToLower(core.CleanString(category))
}

// StorageCategory is the form under which category is persisted.
func StorageCategory(category string) string {
	return strings.ToUpper(core.CleanString(category))
}
