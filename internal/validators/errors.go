package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidEntityID      = errors.New("invalid entity id")
	ErrEmptyName            = errors.New("payload name is required")
	ErrEmptyPayload         = errors.New("payload cannot be empty")
	ErrMalformedPayload     = errors.New("payload is not a well-formed document")
	ErrInvalidKind          = errors.New("invalid mutation kind")
	ErrInvalidVersion       = errors.New("invalid expected version")
	ErrNoFieldsToUpdate     = errors.New("at least one field must be provided for update")
	ErrTempIDOnNonCreate    = errors.New("temp id is only valid for creates")
	ErrPayloadOnDelete      = errors.New("delete mutations carry no payload")
	ErrInvalidVersionCreate = errors.New("version must be unset for creates")
)
