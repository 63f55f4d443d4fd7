package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	Limits LimitsConfig `mapstructure:"limits"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

// GameConfig holds the round lifecycle constants. Earlier revisions of the
// game scattered these as literals; they are configuration now, with one
// canonical default each.
type GameConfig struct {
	MinPlayers        int           `mapstructure:"min_players"`
	MaxPlayers        int           `mapstructure:"max_players"`
	RoundsPerGame     int           `mapstructure:"rounds_per_game"`
	CountdownSeconds  int           `mapstructure:"countdown_seconds"`
	RoundDuration     time.Duration `mapstructure:"round_duration"`
	BetweenRoundDelay time.Duration `mapstructure:"between_round_delay"`
	EndedResetDelay   time.Duration `mapstructure:"ended_reset_delay"`
	ConfidenceFloor   float64       `mapstructure:"confidence_floor"`
	MaxNameLength     int           `mapstructure:"max_name_length"`
	RecoveryTTL       time.Duration `mapstructure:"recovery_ttl"`
	RoomMaxIdle       time.Duration `mapstructure:"room_max_idle"`
	ReapInterval      time.Duration `mapstructure:"reap_interval"`
}

type LimitsConfig struct {
	Join                 ActionLimit `mapstructure:"join"`
	Submit               ActionLimit `mapstructure:"submit"`
	ConnectionMsgsPerSec float64     `mapstructure:"connection_msgs_per_sec"`
	ConnectionBurst      int         `mapstructure:"connection_burst"`
}

// ActionLimit bounds one action type to Max occurrences per sliding Window.
type ActionLimit struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.monitor_address", ":9090")

	viper.SetDefault("game.min_players", 2)
	viper.SetDefault("game.max_players", 8)
	viper.SetDefault("game.rounds_per_game", 5)
	viper.SetDefault("game.countdown_seconds", 5)
	viper.SetDefault("game.round_duration", "60s")
	viper.SetDefault("game.between_round_delay", "5s")
	viper.SetDefault("game.ended_reset_delay", "5s")
	viper.SetDefault("game.confidence_floor", 0.6)
	viper.SetDefault("game.max_name_length", 24)
	viper.SetDefault("game.recovery_ttl", "30s")
	viper.SetDefault("game.room_max_idle", "5m")
	viper.SetDefault("game.reap_interval", "30s")

	viper.SetDefault("limits.join.max", 5)
	viper.SetDefault("limits.join.window", "10s")
	viper.SetDefault("limits.submit.max", 10)
	viper.SetDefault("limits.submit.window", "5s")
	viper.SetDefault("limits.connection_msgs_per_sec", 20)
	viper.SetDefault("limits.connection_burst", 40)
}

// LoadConfig reads config.yaml from path. A missing file is fine: every key
// has a default, so the server runs unconfigured.
func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}
