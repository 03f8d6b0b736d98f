package flutterconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigFileName is looked up in the project directory.
const ConfigFileName = ".flutter-cli.toml"

// Config holds the already-resolved launch configuration for
// `flutter run --machine`. A missing config file yields the zero value.
type Config struct {
	Device             string   `mapstructure:"device"`
	Flavor             string   `mapstructure:"flavor"`
	Target             string   `mapstructure:"target"`
	DartDefineFromFile string   `mapstructure:"dart_define_from_file"`
	ExtraArgs          []string `mapstructure:"extra_args"`
}

// Load reads .flutter-cli.toml from the project directory.
func Load(projectDir string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(filepath.Join(projectDir, ConfigFileName))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read %s: %w", ConfigFileName, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// RunArgs builds the argument list for the flutter binary.
func (c Config) RunArgs() []string {
	args := []string{"run", "--machine"}
	if c.Flavor != "" {
		args = append(args, "--flavor", c.Flavor)
	}
	if c.Target != "" {
		args = append(args, "--target", c.Target)
	}
	if c.DartDefineFromFile != "" {
		args = append(args, "--dart-define-from-file="+c.DartDefineFromFile)
	}
	if c.Device != "" && c.Device != "auto" {
		args = append(args, "--device-id", c.Device)
	}
	return append(args, c.ExtraArgs...)
}
