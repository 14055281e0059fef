package validators

// Field name constants used to specify which fields should be validated.
// These constants are passed to Validate or internal validation methods
// to restrict validation to a subset of fields (field-level scoping).
const (
	// FieldEntityID targets the entity identifier of a mutation.
	FieldEntityID = "entity_id"

	// FieldKind targets the mutation kind (create, update, delete).
	FieldKind = "kind"

	// FieldName targets the required "name" attribute of a create payload.
	FieldName = "name"

	// FieldPayload targets the structural well-formedness of the payload
	// document (JSON-encodable, string keys throughout).
	FieldPayload = "payload"

	// FieldExpectedVersion targets the optimistic concurrency version an
	// update claims to be based on.
	FieldExpectedVersion = "expected_version"
)
