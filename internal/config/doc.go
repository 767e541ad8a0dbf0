// Package config loads the gateway's process configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones:
//
//  1. Built-in defaults
//  2. The linkgate.json file, when present
//  3. LINKGATE_* environment variables
//
// The allow-list itself can additionally be sourced from a local file or an
// S3 object; sources are read exactly once at startup and merged with any
// inline hosts. There is no runtime reconfiguration: the resolved allowlist
// is immutable for the life of the process.
package config
