package config

import (
	"encoding/json"
	"go-subtx/internal/messages"
	"os"
	"reflect"
)

const (
	defaultConfigFilePath = "config.json"

	BackendRocksdb  = "rocksdb"
	BackendPostgres = "postgres"
)

// LoadConfig tries to load the sdk config from a config file given as a parameter. If the filename is a nil
// string pointer, it defaults to a constant file path "config.json"
func LoadConfig(configFilePath *string) (Config, *messages.SdkMessage) {
	var (
		configPath string
		sdkConfig  Config
	)

	configPath = defaultConfigFilePath
	if configFilePath != nil {
		configPath = *configFilePath
	}
	messages.NewSdkMessage(messages.LOG_LEVEL_INFO, "", nil, messages.CONFIG_STARTED_LOADING, configPath).ConsoleLog()

	configFile, err := os.Open(configPath)
	if err != nil {
		return sdkConfig, messages.NewSdkMessage(messages.LOG_LEVEL_ERROR, reflect.TypeOf("").PkgPath(), err, "")
	}
	defer configFile.Close()

	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&sdkConfig)
	if err != nil {
		return sdkConfig, messages.NewSdkMessage(messages.LOG_LEVEL_ERROR, reflect.TypeOf("").PkgPath(), err, "")
	}

	switch sdkConfig.StorageConfig.Backend {
	case BackendRocksdb, BackendPostgres:
	default:
		return sdkConfig, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			reflect.TypeOf("").PkgPath(),
			nil,
			messages.CONFIG_UNKNOWN_STORAGE_BACKEND,
			sdkConfig.StorageConfig.Backend,
		)
	}

	messages.NewSdkMessage(messages.LOG_LEVEL_SUCCESS, "", nil, messages.CONFIG_FINISHED_LOADING).ConsoleLog()
	return sdkConfig, nil
}
