// SPDX-License-Identifier: MPL-2.0

// Package config resolves the settings of one export run using Viper.
//
// Each setting is looked up in layers, highest first:
//
//  1. command-line flag (only when given explicitly)
//  2. process environment (VITE_BASE_URL, VITE_OSS_REGION, VITE_OSS_BUCKET only)
//  3. dotenv files passed with --env-file (same three variables)
//  4. the CUE config file passed with --config, validated against an embedded schema
//  5. built-in defaults; path defaults are computed from the directory the
//     webexport binary lives in
//
// With no config file and no env files this is exactly flag > environment > default.
// All path settings are returned absolute and cleaned.
package config
