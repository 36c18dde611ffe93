package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/uploadqueue-go/types"
)

var (
	ConfigPath    = "uploadqueue.yaml" // be aware that it can be changed, default to ./uploadqueue.yaml
	CurrentConfig types.UploadConfig
)

// DefaultUploadConfig returns the built-in global defaults, the lowest
// layer of the config merge.
func DefaultUploadConfig() types.UploadConfig {
	return types.UploadConfig{
		Method:  "POST",
		Alias:   "file", // default multipart field name
		Timeout: DefaultTimeout,
	}
}

// LoadConfig reads global defaults from a yaml file and overlays them on the
// built-in defaults. A missing file is not an error: the built-in defaults
// are returned as-is (the library should work with zero configuration).
func LoadConfig(path string) (types.UploadConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultUploadConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	var fileCfg types.UploadConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	cfg = *types.Merged(&cfg, &fileCfg)

	CurrentConfig = cfg
	return cfg, nil
}

// WriteConfig persists cfg to the current config path.
func WriteConfig(path string, cfg types.UploadConfig) error {
	if path == "" {
		path = ConfigPath
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.UploadConfig {
	return &CurrentConfig
}
