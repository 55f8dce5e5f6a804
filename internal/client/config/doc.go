// Package config loads runtime configuration for the yieldvault wallet CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults ((*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Example JSON:
//
//	{
//	  "rpc_endpoints": {"11155111": "https://sepolia.example"},
//	  "chain_id": 11155111,
//	  "registry_path": "tokens.yaml",
//	  "deposit_cap": "100000",
//	  "withdraw_cap": "50000",
//	  "dedup_tolerance": "0.01",
//	  "dedup_window": "5s",
//	  "settle_delay": "2s",
//	  "refresh_schedule": "@every 30s"
//	}
package config
