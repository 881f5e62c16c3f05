// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package orchestrator assembles the vendor orchestration core from a
// config.Config: adapters, the resilient caller and its attempt ledger, the
// usage meter, the idempotency cache and its sweeper, and the message
// handler. It also serves the operational HTTP surface (/health and
// /prometheus).
//
// Without DATABASE_URL the ledger and usage repositories are in-memory and
// only live as long as the process.
package orchestrator
