// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The sheetsync Authors

// Package client implements the sync client application runtime.
//
// It wires the protocol transport, local stores, the synchronization engine,
// and background resync into a single process lifecycle.
package client
