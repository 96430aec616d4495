// Package config provides configuration management for Resource Rush.
//
// The config package handles:
//   - Loading game configurations from YAML or JSON files
//   - Filling omitted fields with the built-in defaults
//   - Configuration validation through the engine rules
//   - Default configuration management and discovery
//
// Configuration Format:
//
// Game configurations live in the configs directory as name.yaml, name.yml
// or name.json. The file name without extension is the config id used when
// creating sessions. Each configuration defines:
//   - Grid size and number of levels
//   - Starting lives and the move budget scaling
//   - Resource and penalty cell scaling
//   - Prompt titles, messages and buttons
//
// Example:
//
//	name: Easy
//	grid_size: 6
//	max_levels: 5
//	starting_lives: 5
//	base_moves: 24
//	messages:
//	  penalty:
//	    title: Slippery!
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("easy")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default is "classic" when present, otherwise the first valid file,
// otherwise engine.DefaultGameConfig. SaveConfig always writes YAML.
package config
