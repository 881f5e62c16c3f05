// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package config builds the immutable start-up configuration of the
// orchestration core.
//
// Sources are applied in order, later ones winning:
//
//  1. Built-in defaults (vendorA on OpenAI, vendorB on Gemini, default prices).
//  2. A .env file, when present. Variables already set in the process
//     environment are not overridden.
//  3. An optional YAML file. ${VAR} and ${VAR:-default} references are
//     expanded before parsing.
//  4. Environment variables such as DATABASE_URL, VENDOR_MAX_RETRIES or
//     OPENAI_API_KEY.
//
// API keys that are AWS Secrets Manager ARNs are resolved with
// (*Config).ResolveSecrets before adapters are built.
package config
