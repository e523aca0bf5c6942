package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// globalPath is the file globalConfig was loaded from ("" for defaults).
	globalPath string

	// reloadHooks are called with the new configuration after a reload.
	reloadHooks []func(*Config)

	// configMutex protects the variables above.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global singleton configuration.
// An empty path loads the defaults. Subsequent calls are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		globalPath = path
		configMutex.Unlock()
	})

	return initErr
}

// GetConfig returns the global configuration instance, or nil if Initialize
// has not been called successfully. Callers must treat it as read-only.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// Path returns the file the global configuration was loaded from.
func Path() string {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalPath
}

// SetConfig sets the global configuration instance.
// It is intended for tests; use Initialize for normal loading.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// OnReload registers fn to be called after every successful reload.
func OnReload(fn func(*Config)) {
	configMutex.Lock()
	defer configMutex.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// ReloadConfig reloads the configuration from the specified path. The new
// configuration replaces the global instance only if loading and validation
// succeed; otherwise the existing configuration remains unchanged.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = cfg
	globalPath = path
	hooks := append([]func(*Config){}, reloadHooks...)
	configMutex.Unlock()

	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}

// MustGetConfig returns the global configuration instance.
// It panics if the configuration has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// reset clears the singleton. Tests only.
func reset() {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = nil
	globalPath = ""
	reloadHooks = nil
	initOnce = sync.Once{}
}
