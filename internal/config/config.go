package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"LISTEN_PORT" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"true"`
	Host     string `yaml:"host" env:"MONGO_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
	User     string `yaml:"user" env:"MONGO_USER" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"memorymount"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:""`
	Region    string `yaml:"region" env:"STORAGE_REGION" env-default:"us-east-1"`
	Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:""`
	AccessKey string `yaml:"access_key" env:"STORAGE_ACCESS_KEY" env-default:""`
	SecretKey string `yaml:"secret_key" env:"STORAGE_SECRET_KEY" env-default:""`
}

type AuthConfig struct {
	Secret     string        `yaml:"secret" env:"AUTH_SECRET" env-default:""`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST" env-default:"10"`
}

type CodesConfig struct {
	Length int `yaml:"length" env:"CODES_LENGTH" env-default:"6"`
}

type Config struct {
	Mongo   MongoConfig   `yaml:"mongo"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Codes   CodesConfig   `yaml:"codes"`
	Listen  Listen        `yaml:"listen"`
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
