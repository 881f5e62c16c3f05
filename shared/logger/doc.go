// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

/*
Package logger provides structured JSON logging for the orchestration core.

Every entry carries the component, instance and container identity plus the
tenant id and correlation id of the logical request it belongs to. The
correlation id is always passed explicitly by the caller:

	log := logger.New("reliability")
	log.Info(tenantID, correlationID, "Calling vendorA", map[string]interface{}{
	    "attempt": 1,
	})

Entries are written as single-line JSON:

	{"timestamp":"2025-01-15T10:30:00.123456789Z","level":"INFO",
	 "component":"reliability","instance_id":"i-abc123","container":"orch-1",
	 "tenant_id":"t-1","correlation_id":"c-9","message":"Calling vendorA",
	 "fields":{"attempt":1}}

INSTANCE_ID is read from the environment; the container name comes from the
hostname. Logger instances are safe for concurrent use.
*/
package logger
