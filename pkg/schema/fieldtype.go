package schema

// FieldType is the closed set of input kinds a field descriptor can declare.
// Adding a type means adding a constant here and a case to Kind; renderers
// resolve widgets through pkg/widgets rather than branching on literals.
type FieldType string

const (
	TypeText         FieldType = "text"
	TypeTextarea     FieldType = "textarea"
	TypeEmail        FieldType = "email"
	TypePassword     FieldType = "password"
	TypeNumber       FieldType = "number"
	TypeDate         FieldType = "date"
	TypeSelect       FieldType = "select"
	TypeMultiSelect  FieldType = "multiselect"
	TypeAutocomplete FieldType = "autocomplete"
	TypeFile         FieldType = "file"
	TypeRadio        FieldType = "radio"
	TypeCheckbox     FieldType = "checkbox"
	TypeSwitch       FieldType = "switch"
	TypeHidden       FieldType = "hidden"
)

// ValueKind describes the shape of the value a field stores.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
	KindFile
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// FieldTypes lists every known type in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		TypeText, TypeTextarea, TypeEmail, TypePassword, TypeNumber, TypeDate,
		TypeSelect, TypeMultiSelect, TypeAutocomplete, TypeFile, TypeRadio,
		TypeCheckbox, TypeSwitch, TypeHidden,
	}
}

// Kind maps the type onto its value shape. The boolean is false for unknown
// types.
func (t FieldType) Kind() (ValueKind, bool) {
	switch t {
	case TypeText, TypeTextarea, TypeEmail, TypePassword, TypeDate,
		TypeSelect, TypeAutocomplete, TypeRadio, TypeHidden:
		return KindString, true
	case TypeNumber:
		return KindNumber, true
	case TypeCheckbox, TypeSwitch:
		return KindBool, true
	case TypeMultiSelect:
		return KindList, true
	case TypeFile:
		return KindFile, true
	default:
		return KindString, false
	}
}

// Valid reports whether t is a known type.
func (t FieldType) Valid() bool {
	_, ok := t.Kind()
	return ok
}

// ClearsDependents reports whether a change of value should reset the fields
// listed in the descriptor's clearFields.
func (t FieldType) ClearsDependents() bool {
	switch t {
	case TypeRadio, TypeSelect, TypeAutocomplete:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the type draws its value from an option list.
func (t FieldType) HasOptions() bool {
	switch t {
	case TypeSelect, TypeMultiSelect, TypeAutocomplete, TypeRadio:
		return true
	default:
		return false
	}
}
