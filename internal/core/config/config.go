package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`
}

type App struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"`
	HTTP  HTTP   `mapstructure:"http"`
	Admin HTTP   `mapstructure:"admin"`
}

type LogFile struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level string  `mapstructure:"level"`
	JSON  bool    `mapstructure:"json"`
	File  LogFile `mapstructure:"file"`
}

type JWT struct {
	Secret            string `mapstructure:"secret"`
	Issuer            string `mapstructure:"issuer"`
	AccessTokenTTLMin int    `mapstructure:"access_token_ttl_min"`
}

// AdminUser 后台登录账号，密码存 bcrypt hash
type AdminUser struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

type SourceCache struct {
	Enabled bool   `mapstructure:"enabled"`
	TTLSec  int    `mapstructure:"ttl_sec"`
	Prefix  string `mapstructure:"prefix"`
}

// Source 用户列表从哪里来：http（远端 API）或 db（本地镜像表）
type Source struct {
	Driver     string      `mapstructure:"driver"`
	BaseURL    string      `mapstructure:"base_url"`
	TimeoutSec int         `mapstructure:"timeout_sec"`
	UserAgent  string      `mapstructure:"user_agent"`
	RPS        float64     `mapstructure:"rps"`
	Burst      int         `mapstructure:"burst"`
	Cache      SourceCache `mapstructure:"cache"`
}

type Session struct {
	IdleTTLSec      int `mapstructure:"idle_ttl_sec"`
	Max             int `mapstructure:"max"`
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Log       Log       `mapstructure:"log"`
	JWT       JWT       `mapstructure:"jwt"`
	AdminUser AdminUser `mapstructure:"admin_user"`
	DB        DB        `mapstructure:"db"`
	Redis     Redis     `mapstructure:"redis"`
	Source    Source    `mapstructure:"source"`
	Session   Session   `mapstructure:"session"`
}

func (s Source) Timeout() time.Duration { return time.Duration(s.TimeoutSec) * time.Second }

func (c SourceCache) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

func (s Session) IdleTTL() time.Duration { return time.Duration(s.IdleTTLSec) * time.Second }

func (s Session) FetchTimeout() time.Duration { return time.Duration(s.FetchTimeoutSec) * time.Second }

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "team-directory")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.read_timeout_sec", 5)
	v.SetDefault("app.http.write_timeout_sec", 0) // SSE 长连接
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.admin.read_timeout_sec", 5)
	v.SetDefault("app.admin.write_timeout_sec", 30)
	v.SetDefault("app.admin.idle_timeout_sec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "team-directory")
	v.SetDefault("jwt.access_token_ttl_min", 60)
	v.SetDefault("admin_user.username", "admin")
	v.SetDefault("admin_user.password_hash", "")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:directory.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("source.driver", "http")
	v.SetDefault("source.base_url", "https://jsonplaceholder.typicode.com/")
	v.SetDefault("source.timeout_sec", 10)
	v.SetDefault("source.user_agent", "team-directory/1.0")
	v.SetDefault("source.rps", 5)
	v.SetDefault("source.burst", 5)
	v.SetDefault("source.cache.enabled", false)
	v.SetDefault("source.cache.ttl_sec", 300)
	v.SetDefault("source.cache.prefix", "directory")

	v.SetDefault("session.idle_ttl_sec", 900)
	v.SetDefault("session.max", 1000)
	v.SetDefault("session.fetch_timeout_sec", 15)
}

// LoadE 读取 yaml + APP_ 前缀环境变量；文件不存在时只用默认值
func LoadE(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = DefaultPath
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, c.validate()
}

func (c *Config) validate() error {
	switch c.Source.Driver {
	case "http", "db":
	default:
		return fmt.Errorf("source.driver: unsupported %q", c.Source.Driver)
	}
	return nil
}

// Load 启动期使用，失败直接退出
func Load(path string) *Config {
	c, err := LoadE(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}
