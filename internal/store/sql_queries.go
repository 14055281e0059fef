// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

package store

const (
	saveSnapshot = `
		INSERT INTO snapshots (
			entity_id,
			version,
			payload,
			updated_at
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at;`

	getAllSnapshots = `
		SELECT
			entity_id,
			version,
			payload,
			updated_at
		FROM snapshots;`

	deleteSnapshot = `
		DELETE FROM snapshots
		WHERE entity_id = $1;`
)
