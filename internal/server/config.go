package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/conceptforge/bingo/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	StaticDir string `hcl:"static_dir,optional"`
}

// GameSettings contains game-level configuration
type GameSettings struct {
	RoomCodeLength int   `hcl:"room_code_length,optional"`
	MinPlayers     int   `hcl:"min_players,optional"`
	Seed           int64 `hcl:"seed,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:   "localhost",
			Port:      3000,
			LogLevel:  "info",
			StaticDir: "public",
		},
		Game: GameSettings{
			RoomCodeLength: game.DefaultCodeLength,
			MinPlayers:     2,
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.RoomCodeLength == 0 {
		config.Game.RoomCodeLength = game.DefaultCodeLength
	}
	if config.Game.MinPlayers == 0 {
		config.Game.MinPlayers = 2
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Game.MinPlayers < 2 {
		return fmt.Errorf("min players must be at least 2, got %d", c.Game.MinPlayers)
	}
	if c.Game.RoomCodeLength < 4 || c.Game.RoomCodeLength > 12 {
		return fmt.Errorf("room code length must be between 4 and 12, got %d", c.Game.RoomCodeLength)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
