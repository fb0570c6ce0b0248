package domain

import (
	"fmt"
	"strings"
)

// TransformAction is the kind of mutation a transformation applies.
type TransformAction string

const (
	ActionRename TransformAction = "rename"
	ActionRemove TransformAction = "remove"
	ActionAdd    TransformAction = "add"
	ActionModify TransformAction = "modify"
	ActionFormat TransformAction = "format"
)

func (a TransformAction) String() string { return string(a) }

func (a TransformAction) IsValid() bool {
	switch a {
	case ActionRename, ActionRemove, ActionAdd, ActionModify, ActionFormat:
		return true
	}
	return false
}

// FormatKind is the cast applied by a format transformation.
type FormatKind string

const (
	FormatDate      FormatKind = "date"
	FormatNumber    FormatKind = "number"
	FormatString    FormatKind = "string"
	FormatBoolean   FormatKind = "boolean"
	FormatUppercase FormatKind = "uppercase"
	FormatLowercase FormatKind = "lowercase"
)

func (k FormatKind) IsValid() bool {
	switch k {
	case FormatDate, FormatNumber, FormatString, FormatBoolean, FormatUppercase, FormatLowercase:
		return true
	}
	return false
}

// ModifyKind names one vetted modify operation. Modify transformations are a
// closed set: payload configuration can never inject executable code.
type ModifyKind string

const (
	ModifyUppercase ModifyKind = "uppercase"
	ModifyLowercase ModifyKind = "lowercase"
	ModifyTrim      ModifyKind = "trim"
	ModifyMultiply  ModifyKind = "multiply"
	ModifyRound     ModifyKind = "round"
	ModifyPrefix    ModifyKind = "prefix"
	ModifySuffix    ModifyKind = "suffix"
	ModifyDefault   ModifyKind = "default"
	ModifyMask      ModifyKind = "mask"
)

func (k ModifyKind) IsValid() bool {
	switch k {
	case ModifyUppercase, ModifyLowercase, ModifyTrim, ModifyMultiply,
		ModifyRound, ModifyPrefix, ModifySuffix, ModifyDefault, ModifyMask:
		return true
	}
	return false
}

// ModifyOp is the tagged variant configuring a modify transformation.
type ModifyOp struct {
	Kind   ModifyKind `json:"kind"`
	Factor float64    `json:"factor,omitempty"`
	Value  string     `json:"value,omitempty"`
}

// Transformation is one declarative payload mutation. Transformations are
// applied in order to a deep copy of the payload.
type Transformation struct {
	Action TransformAction `json:"action"`
	Field  string          `json:"field"`
	Target string          `json:"target,omitempty"`
	Value  any             `json:"value,omitempty"`
	Format FormatKind      `json:"format,omitempty"`
	Modify *ModifyOp       `json:"modify,omitempty"`
}

func (t *Transformation) Validate() error {
	if !t.Action.IsValid() {
		return fmt.Errorf("%w: invalid transform action %q", ErrValidation, t.Action)
	}
	if strings.TrimSpace(t.Field) == "" {
		return fmt.Errorf("%w: transform field is required", ErrValidation)
	}

	switch t.Action {
	case ActionRename:
		if strings.TrimSpace(t.Target) == "" {
			return fmt.Errorf("%w: rename transform requires a target", ErrValidation)
		}
	case ActionFormat:
		if !t.Format.IsValid() {
			return fmt.Errorf("%w: invalid format kind %q", ErrValidation, t.Format)
		}
	case ActionModify:
		if t.Modify == nil {
			return fmt.Errorf("%w: modify transform requires an operation", ErrValidation)
		}
		if !t.Modify.Kind.IsValid() {
			return fmt.Errorf("%w: invalid modify kind %q", ErrValidation, t.Modify.Kind)
		}
		if t.Modify.Kind == ModifyMultiply && t.Modify.Factor == 0 {
			return fmt.Errorf("%w: multiply modify requires a non-zero factor", ErrValidation)
		}
	}

	return nil
}
