package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Data source modes. Live serves from the SQLite store; Fixture serves
// a fixed demo dataset. The mode is chosen once at startup and never
// swapped at a call site.
const (
	DataSourceLive    = "live"
	DataSourceFixture = "fixture"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Uploads    UploadsConfig     `yaml:"uploads"`
	OpenAI     OpenAIConfig      `yaml:"openai"`
	DataSource DataSourceConfig  `yaml:"datasource"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Uploads.Validate(); err != nil {
		return err
	}
	if err := c.OpenAI.Validate(); err != nil {
		return err
	}
	if err := c.DataSource.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// UploadsConfig holds the server-side directory where meeting audio
// files are stored. Dir defaults to "uploads" and may be overridden via
// UPLOAD_DIR through env expansion in the config file.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// OpenAIConfig holds credentials and model choices for the analysis
// engine. An empty APIKey disables the engine; transcription and
// analysis endpoints then reject requests instead of failing deep in
// the pipeline.
type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	ChatModel       string `yaml:"chat_model"`
	TranscribeModel string `yaml:"transcribe_model"`
	SpeechVoice     string `yaml:"speech_voice"`
}

// Enabled reports whether an API key is configured.
func (c *OpenAIConfig) Enabled() bool { return c.APIKey != "" }

// Validate validates the OpenAI configuration.
func (c *OpenAIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ChatModel, validation.Required),
		validation.Field(&c.TranscribeModel, validation.Required),
	)
}

// DataSourceConfig selects between the live store and the fixture
// dataset.
type DataSourceConfig struct {
	Mode string `yaml:"mode"`
}

// Fixture reports whether the fixture dataset is active.
func (c *DataSourceConfig) Fixture() bool { return c.Mode == DataSourceFixture }

// Validate validates the data source configuration.
func (c *DataSourceConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = DataSourceLive
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(DataSourceLive, DataSourceFixture)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5167,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Uploads: UploadsConfig{
			Dir: "uploads",
		},
		OpenAI: OpenAIConfig{
			ChatModel:       "gpt-4o-mini",
			TranscribeModel: "whisper-1",
			SpeechVoice:     "alloy",
		},
		DataSource: DataSourceConfig{
			Mode: DataSourceLive,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
