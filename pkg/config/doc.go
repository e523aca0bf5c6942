// Package config provides configuration management for gathertrim.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden from the environment and validated.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("gathertrim.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("gathertrim.yaml")
//
// An empty path loads the defaults; ResolvePath picks gathertrim.yaml in
// the working directory when no explicit file is given and it exists.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GATHERTRIM_SECTION_FIELD:
//
//   - GATHERTRIM_TRIM_WINDOW overrides trim.window
//   - GATHERTRIM_GATHER_IMAGES overrides gather.images (comma separated)
//   - GATHERTRIM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// BUGZILLA_API_KEY is accepted as a fallback for bugzilla.api_key.
//
// # Singleton Pattern
//
//	if err := config.Initialize(path); err != nil {
//	    return err
//	}
//	cfg := config.GetConfig()
//
// In schedule mode a Watcher calls ReloadConfig when the file changes and
// hooks registered with OnReload receive the new configuration.
//
// # Example Configuration
//
//	trim:
//	  window: 30m
//	  node_markers: ["kubelet", "NetworkManager", "crio"]
//
//	gather:
//	  images:
//	    - quay.io/kubevirt/must-gather
//
//	bugzilla:
//	  url: https://bugzilla.redhat.com
//
//	ledger:
//	  driver: sqlite
//	  path: /var/lib/gathertrim/runs.db
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
