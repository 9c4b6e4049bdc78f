package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/karune-engine/internal/filtering"
)

const (
	app     = "karune-engine"
	envFile = ".env"
)

type Config struct {
	Dataset   string           `mapstructure:"dataset"`
	NeedIndex int              `mapstructure:"need-index"`
	Filters   filtering.Config `mapstructure:"filters"`
	Server    *ServerConfig    `mapstructure:"server"`
}

type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	MaxBodyBytes int64  `mapstructure:"max-body-bytes"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "karune-engine ranks sponsors and volunteers for aid needs",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("server.listen", "KARUNE_LISTEN"); err != nil {
		log.Fatalf("binding KARUNE_LISTEN environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is karune-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if err := loadEnvFile(envFile); err != nil {
		log.Fatalf("loading %s: %v", envFile, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// An explicitly requested config must be readable.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)

	// Without a config file every setting falls back to flags and defaults.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// loadEnvFile exports the variables of an optional dotenv file. Variables
// already set in the environment win.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}

// bindFilterFlags binds the filter flags of the running command. Several
// commands define them, so binding happens at run time rather than in init.
func bindFilterFlags(cmd *cobra.Command) {
	viper.BindPFlag("filters.minimum-score", cmd.Flags().Lookup("min-score"))
	viper.BindPFlag("filters.exclude-file", cmd.Flags().Lookup("exclude-file"))
}
