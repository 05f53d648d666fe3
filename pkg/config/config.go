package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from a yaml file into the given config struct.
// Environment variables override file values, with dots replaced by
// underscores (e.g. TELEGRAM_BOT_TOKEN for telegram.bot_token).
func Load(path string, config interface{}) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Failed to read config file, falling back to environment variables")
	}

	return viper.Unmarshal(config)
}
