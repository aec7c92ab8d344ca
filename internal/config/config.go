package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "INTERVIEWS_"

type Application struct {
	// Host is the public base URL used to build absolute links (checkout return URLs, emails).
	Host   string `koanf:"host"`
	Listen string `koanf:"listen"`
	// SecretKey signs session cookies and CSRF tokens. Must be at least 32 bytes in production.
	SecretKey     string   `koanf:"secretkey"`
	SecureCookies bool     `koanf:"securecookies"`
	Database      Database `koanf:"db"`
	Stripe        Stripe   `koanf:"stripe"`
	CalCom        CalCom   `koanf:"calcom"`
	Email         Email    `koanf:"email"`
	Storage       Storage  `koanf:"storage"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Stripe struct {
	SecretKey      string `koanf:"secretkey"`
	PublishableKey string `koanf:"publishablekey"`
	WebhookSecret  string `koanf:"webhooksecret"`
	Currency       string `koanf:"currency"`
}

type CalCom struct {
	EmbedOrigin string `koanf:"embedorigin"`
	ApiKey      string `koanf:"apikey"`
}

type Email struct {
	// Backend is "console" (messages are logged) or "smtp".
	Backend string `koanf:"backend"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	User    string `koanf:"user"`
	Pass    string `koanf:"pass"`
	From    string `koanf:"from"`
	UseTLS  bool   `koanf:"usetls"`
}

type Storage struct {
	// Backend is "local" or "minio".
	Backend   string `koanf:"backend"`
	LocalPath string `koanf:"localpath"`
	Minio     Minio  `koanf:"minio"`
}

type Minio struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"accesskey"`
	SecretKey string `koanf:"secretkey"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"usessl"`
}

func Defaults() Application {
	return Application{
		Host:      "http://localhost:8000",
		Listen:    ":8000",
		SecretKey: "insecure-dev-key-change-in-production",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "interviews",
			Pass:   "",
			Name:   "interviews",
			Schema: "interviews",
		},
		Stripe: Stripe{
			Currency: "usd",
		},
		CalCom: CalCom{
			EmbedOrigin: "https://app.cal.com",
		},
		Email: Email{
			Backend: "console",
			Port:    587,
			From:    "noreply@508.dev",
			UseTLS:  true,
		},
		Storage: Storage{
			Backend:   "local",
			LocalPath: "mediafiles",
			Minio: Minio{
				Bucket: "interview-service",
				Region: "us-east-1",
				UseSSL: true,
			},
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
