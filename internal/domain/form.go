package domain

// FieldKind is the user-facing type of a form field, mapped from the
// document's native field types by the extraction backend.
type FieldKind string

const (
	FieldText      FieldKind = "text"
	FieldCheckbox  FieldKind = "checkbox"
	FieldRadio     FieldKind = "radio"
	FieldDropdown  FieldKind = "dropdown"
	FieldSignature FieldKind = "signature"
)

// FormField is one fillable field extracted from a document. Identity is
// the Name string; DisplayName is an optional translated label shown to
// the user while Name keys the value sent back for population.
type FormField struct {
	Name        string    `json:"name"`
	Kind        FieldKind `json:"type"`
	Value       string    `json:"value"`
	DisplayName string    `json:"display_name,omitempty"`
}

// FieldValues maps original field names to user-entered values.
type FieldValues map[string]string
