package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel           slog.Level                `json:"LogLevel" yaml:"logLevel"`
	Listen             string                    `json:"Listen" yaml:"listen" validate:"required"`
	Storage            StorageConfig             `json:"Storage" yaml:"storage" validate:"required"`
	Pages              PagesConfig               `json:"Pages" yaml:"pages" validate:"required"`
	Gallery            GalleryConfig             `json:"Gallery" yaml:"gallery" validate:"required"`
	Probe              ProbeConfig               `json:"Probe" yaml:"probe" validate:"required"`
	Sessions           SessionsConfig            `json:"Sessions" yaml:"sessions"`
	LocalePath         string                    `json:"LocalePath" yaml:"localePath" validate:"required"`
	AvailableLanguages []AvailableLanguageConfig `json:"AvailableLanguages" yaml:"availableLanguages" validate:"required,min=1,dive"`
}

type StorageConfig struct {
	Type string    `json:"Type" yaml:"type" validate:"required,oneof=b2 s3 fs"`
	B2   *B2Config `json:"B2" yaml:"b2" validate:"required_if=Type b2"`
	S3   *S3Config `json:"S3" yaml:"s3" validate:"required_if=Type s3"`
	FS   *FSConfig `json:"FS" yaml:"fs" validate:"required_if=Type fs"`
}

type B2Config struct {
	BucketName     string `json:"BucketName" yaml:"bucketName" validate:"required,min=1"`
	Prefix         string `json:"Prefix" yaml:"prefix"`
	KeyID          string `json:"KeyID" yaml:"keyID"`
	ApplicationKey string `json:"ApplicationKey" yaml:"applicationKey"`
}

type S3Config struct {
	BucketName      string `json:"BucketName" yaml:"bucketName" validate:"required,min=1"`
	Region          string `json:"Region" yaml:"region" validate:"required,min=1"`
	Endpoint        string `json:"Endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Prefix          string `json:"Prefix" yaml:"prefix"`
	AccessKeyID     string `json:"AccessKeyID" yaml:"accessKeyID"`
	SecretAccessKey string `json:"SecretAccessKey" yaml:"secretAccessKey"`
	UsePathStyle    bool   `json:"UsePathStyle" yaml:"usePathStyle"`
}

type FSConfig struct {
	Root string `json:"Root" yaml:"root" validate:"required,dirpath"`
}

type PagesConfig struct {
	Prefix        string        `json:"Prefix" yaml:"prefix"`
	CacheDuration time.Duration `json:"CacheDuration" yaml:"cacheDuration"`
	WarmupCron    string        `json:"WarmupCron" yaml:"warmupCron"`
	Report        *MailConfig   `json:"Report" yaml:"report"`
}

type MailConfig struct {
	ClientHost  string   `json:"ClientHost" yaml:"clientHost" validate:"required"`
	MailHost    string   `json:"MailHost" yaml:"mailHost" validate:"required"`
	MailPort    int      `json:"MailPort" yaml:"mailPort" validate:"gte=0,lte=65535"`
	PublicName  string   `json:"PublicName" yaml:"publicName" validate:"required"`
	MailAddress string   `json:"MailAddress" yaml:"mailAddress" validate:"required,email"`
	Username    string   `json:"Username" yaml:"username" validate:"required"`
	Password    string   `json:"Password" yaml:"password" validate:"required"`
	Recipients  []string `json:"Recipients" yaml:"recipients" validate:"required,min=1,dive,email"`
}

type GalleryConfig struct {
	Viewer      string       `json:"Viewer" yaml:"viewer" validate:"omitempty,oneof=overlay external"`
	MediaPrefix string       `json:"MediaPrefix" yaml:"mediaPrefix" validate:"required,startswith=/"`
	HtmxURL     string       `json:"HtmxURL" yaml:"htmxURL" validate:"required,url"`
	External    ViewerConfig `json:"External" yaml:"external"`
}

type ViewerConfig struct {
	ModuleURL    string        `json:"ModuleURL" yaml:"moduleURL"`
	SubmoduleURL string        `json:"SubmoduleURL" yaml:"submoduleURL"`
	Timeout      time.Duration `json:"Timeout" yaml:"timeout"`
}

type ProbeConfig struct {
	Timeout     time.Duration `json:"Timeout" yaml:"timeout"`
	Concurrency int           `json:"Concurrency" yaml:"concurrency" validate:"gte=0"`
	MaxBytes    int           `json:"MaxBytes" yaml:"maxBytes" validate:"gte=0"`
	Db          DbConfig      `json:"Db" yaml:"db" validate:"required"`
}

type DbConfig struct {
	Type string        `json:"Type" yaml:"type" validate:"required,oneof=sqlite3"`
	Cfg  Sqlite3Config `json:"Config" yaml:"config"`
}

type Sqlite3Config struct {
	DSN string `json:"DSN" yaml:"dsn" validate:"required"`
}

type SessionsConfig struct {
	TTL  time.Duration `json:"TTL" yaml:"ttl"`
	Salt string        `json:"Salt" yaml:"salt"`
}

type AvailableLanguageConfig struct {
	Name    string `json:"Name" yaml:"name" validate:"required"`
	Alt     string `json:"Alt" yaml:"alt"`
	LocFile string `json:"LocFile" yaml:"locFile" validate:"required,filepath"`
}

func LoadConfig(path string, config *Config) error {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expandedFileBytes := []byte(os.ExpandEnv(string(fileBytes)))

	if err = yaml.Unmarshal(expandedFileBytes, config); err != nil {
		return err
	}

	return nil
}

func InitConfig(path string) (*Config, error) {
	config := &Config{}
	if err := LoadConfig(path, config); err != nil {
		return nil, err
	}
	config.setDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Gallery.MediaPrefix == "" {
		c.Gallery.MediaPrefix = "/media/"
	}
	if c.Gallery.HtmxURL == "" {
		c.Gallery.HtmxURL = "https://unpkg.com/htmx.org@2.0.3"
	}
	if c.Gallery.Viewer == "" {
		c.Gallery.Viewer = "overlay"
	}
	if c.Gallery.External.Timeout == 0 {
		c.Gallery.External.Timeout = 5 * time.Second
	}
	if c.Pages.CacheDuration == 0 {
		c.Pages.CacheDuration = 5 * time.Minute
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 10 * time.Second
	}
	if c.Probe.Concurrency == 0 {
		c.Probe.Concurrency = 4
	}
	if c.Probe.MaxBytes == 0 {
		c.Probe.MaxBytes = 1 << 20
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 30 * time.Minute
	}
}
