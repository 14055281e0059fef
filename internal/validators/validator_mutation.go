package validators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vttkit/sheetsync/models"
)

type MutationValidator struct {
}

func NewMutationValidator() Validator {
	return &MutationValidator{}
}

func (v *MutationValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Mutation:
		return v.validateMutation(ctx, value, fields...)
	case *models.Mutation:
		return v.validateMutation(ctx, *value, fields...)

	case models.Payload:
		return v.validatePayload(value, true, fields...)

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, obj)
	}
}

func (v *MutationValidator) validateMutation(_ context.Context, m models.Mutation, fields ...string) error {
	if len(fields) > 0 {
		return v.validateMutationFields(m, fields...)
	}

	switch m.Kind {
	case models.MutationCreate:
		return v.validateCreate(m)
	case models.MutationUpdate:
		return v.validateUpdate(m)
	case models.MutationDelete:
		return v.validateDelete(m)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, m.Kind)
	}
}

func (v *MutationValidator) validateMutationFields(m models.Mutation, fields ...string) error {
	for _, field := range fields {
		switch field {
		case FieldEntityID:
			if err := validateEntityID(m.EntityID); err != nil {
				return err
			}
		case FieldKind:
			if m.Kind != models.MutationCreate && m.Kind != models.MutationUpdate && m.Kind != models.MutationDelete {
				return fmt.Errorf("%w: %q", ErrInvalidKind, m.Kind)
			}
		case FieldName:
			if err := validateName(m.Payload); err != nil {
				return err
			}
		case FieldPayload:
			if err := v.validatePayload(m.Payload, m.Kind != models.MutationUpdate); err != nil {
				return err
			}
		case FieldExpectedVersion:
			if m.ExpectedVersion < 1 {
				return fmt.Errorf("%w: %d", ErrInvalidVersion, m.ExpectedVersion)
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
	}

	return nil
}

// validateCreate enforces the minimal shape of a brand-new entity: a
// non-empty name and a payload that survives JSON encoding.
func (v *MutationValidator) validateCreate(m models.Mutation) error {
	if err := v.validatePayload(m.Payload, true); err != nil {
		return err
	}
	if err := validateName(m.Payload); err != nil {
		return err
	}
	if m.ExpectedVersion != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidVersionCreate, m.ExpectedVersion)
	}
	return nil
}

func (v *MutationValidator) validateUpdate(m models.Mutation) error {
	if err := validateEntityID(m.EntityID); err != nil {
		return err
	}
	if len(m.Payload) == 0 {
		return ErrNoFieldsToUpdate
	}
	if err := v.validatePayload(m.Payload, false); err != nil {
		return err
	}
	if m.ExpectedVersion < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, m.ExpectedVersion)
	}
	if m.TempID != "" {
		return ErrTempIDOnNonCreate
	}
	return nil
}

func (v *MutationValidator) validateDelete(m models.Mutation) error {
	if err := validateEntityID(m.EntityID); err != nil {
		return err
	}
	if len(m.Payload) != 0 {
		return ErrPayloadOnDelete
	}
	if m.TempID != "" {
		return ErrTempIDOnNonCreate
	}
	return nil
}

// validatePayload checks that the document is present (when required) and is
// a well-formed nested structure. JSON encoding is the well-formedness
// oracle: it rejects channels, functions, cycles, and non-string map keys.
func (v *MutationValidator) validatePayload(p models.Payload, required bool, fields ...string) error {
	if len(p) == 0 {
		if required {
			return ErrEmptyPayload
		}
		return nil
	}

	if _, err := json.Marshal(p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	for _, field := range fields {
		switch field {
		case FieldName:
			if err := validateName(p); err != nil {
				return err
			}
		case FieldPayload:
			// already checked above
		default:
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
	}

	return nil
}

func validateName(p models.Payload) error {
	name, ok := p["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

func validateEntityID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidEntityID
	}
	return nil
}
