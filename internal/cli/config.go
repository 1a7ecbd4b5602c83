package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL    string
	IdentityFile string
	Output       string
	Verbose      bool
}

// Identity is the player a game code was last joined as
type Identity struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("BANKCTL_SERVER", "http://localhost:3001"),
		IdentityFile: getEnvOrDefault("BANKCTL_IDENTITY_FILE", defaultIdentityFile()),
		Output:       "text",
		Verbose:      false,
	}
}

// LoadIdentities reads the identity file. A missing file yields an empty map.
func (c *Config) LoadIdentities() (map[string]Identity, error) {
	ids := make(map[string]Identity)

	data, err := os.ReadFile(c.IdentityFile)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return ids, nil
	}

	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Identity returns the stored identity for a game code
func (c *Config) Identity(code string) (Identity, bool, error) {
	ids, err := c.LoadIdentities()
	if err != nil {
		return Identity{}, false, err
	}
	id, ok := ids[strings.ToUpper(code)]
	return id, ok, nil
}

// SaveIdentity records the player a game code was joined as
func (c *Config) SaveIdentity(code string, id Identity) error {
	ids, err := c.LoadIdentities()
	if err != nil {
		return err
	}
	ids[strings.ToUpper(code)] = id

	dir := filepath.Dir(c.IdentityFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.IdentityFile, data, 0600)
}

func defaultIdentityFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bankctl/identity.json"
	}
	return filepath.Join(home, ".bankctl", "identity.json")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
