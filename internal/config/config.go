package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mintdrop/marketplace-engine/internal/log"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool

	ApiPort    string
	HealthPort string

	Engine        EngineConfig
	Chain         ChainConfig
	ElasticSearch ElasticSearchConfig
	Amqp          AmqpConfig
	Aws           AwsConfig
}

type EngineConfig struct {
	// Account the engine transacts as on the surrounding ledger. Pulled token
	// payments are held by this account until the seller withdraws.
	Account string
	Admin   string
}

type ChainConfig struct {
	Url     string
	Timeout int
	Debug   bool
}

type ElasticSearchConfig struct {
	Hosts       []string
	Sniff       bool
	HealthCheck bool
	Debug       bool
	Username    string
	Password    string
	Aws         bool
}

type AmqpConfig struct {
	Uri     string
	Enabled bool
}

type AwsConfig struct {
	AccessKey string
	SecretKey string
	Region    string
}

func Init(service string) {
	if err := godotenv.Load(".env"); err != nil {
		zap.L().With(zap.Error(err)).Warn("Unable to load .env")
	}

	log.NewLogger(Get().Debug, getString("SENTRY_DSN", ""))
	zap.L().With(zap.String("service", service)).Debug("Config initialised")
}

func Get() *Config {
	return &Config{
		Env:        getString("ENV", ""),
		Network:    getString("NETWORK", "mainnet"),
		Index:      getString("INDEX_NAME", "marketplace"),
		Debug:      getBool("DEBUG", false),
		ApiPort:    getString("API_PORT", "8080"),
		HealthPort: getString("HEALTH_PORT", "8090"),
		Engine: EngineConfig{
			Account: getString("ENGINE_ACCOUNT", ""),
			Admin:   getString("ENGINE_ADMIN", ""),
		},
		Chain: ChainConfig{
			Url:     getString("CHAIN_URL", ""),
			Timeout: getInt("CHAIN_TIMEOUT", 30),
			Debug:   getBool("CHAIN_DEBUG", false),
		},
		ElasticSearch: ElasticSearchConfig{
			Hosts:       getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:       getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck: getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:       getBool("ELASTIC_SEARCH_DEBUG", false),
			Username:    getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:    getString("ELASTIC_SEARCH_PASSWORD", ""),
			Aws:         getBool("ELASTIC_SEARCH_AWS", false),
		},
		Amqp: AmqpConfig{
			Uri:     getString("AMQP_URI", ""),
			Enabled: getBool("AMQP_ENABLED", false),
		},
		Aws: AwsConfig{
			AccessKey: getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getString("AWS_SECRET_KEY_ID", ""),
			Region:    getString("AWS_REGION", ""),
		},
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}
