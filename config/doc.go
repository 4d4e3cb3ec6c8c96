// Package config loads protostar settings: built-in defaults, then an
// optional JSON file, then PROTOSTAR_* environment variables.
//
// Values can be read through the typed structs or by dotted key:
//
//	cfg, err := config.Load("protostar.json")
//	host, _ := cfg.Get("queue.connections.default.host")
//	conn, err := cfg.Connection("")
package config
