package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

type Config struct {
	Port              string
	DatabaseUser      string
	DatabasePassword  string
	DatabaseHost      string
	DatabasePort      string
	DatabaseName      string
	DatabaseSSLMode   string
	JwtSigningKey     []byte
	TokenExpiryHours  int    // lifetime of issued bearer tokens
	Env               string // either prod or dev, will disable https redirect and few other bits
	SentryDSN         string // optional, error capture is skipped when empty
	SiteName          string
	SiteHost          string // public hostname, used to build feed/sitemap URLs
	URLProtocol       string
	StorageEndpoint   string // S3-compatible object storage for cover images and avatars
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageSecure     bool
	AdminSeedEmail    string // optional, bootstrap admin account created on startup
	AdminSeedPassword string
	AdminSeedName     string
}

func LoadConfig() (Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		return Config{}, fmt.Errorf("PORT cannot be empty")
	}
	databaseUser := os.Getenv("DATABASE_USER")
	if databaseUser == "" {
		return Config{}, fmt.Errorf("DATABASE_USER cannot be empty")
	}
	databasePassword := os.Getenv("DATABASE_PASSWORD")
	if databasePassword == "" {
		return Config{}, fmt.Errorf("DATABASE_PASSWORD cannot be empty")
	}
	databaseHost := os.Getenv("DATABASE_HOST")
	if databaseHost == "" {
		return Config{}, fmt.Errorf("DATABASE_HOST cannot be empty")
	}
	databasePort := os.Getenv("DATABASE_PORT")
	if databasePort == "" {
		return Config{}, fmt.Errorf("DATABASE_PORT cannot be empty")
	}
	databaseName := os.Getenv("DATABASE_NAME")
	if databaseName == "" {
		return Config{}, fmt.Errorf("DATABASE_NAME cannot be empty")
	}
	databaseSSLMode := os.Getenv("DATABASE_SSL_MODE")
	if databaseSSLMode == "" {
		return Config{}, fmt.Errorf("DATABASE_SSL_MODE cannot be empty")
	}
	jwtSigningKeyBase64 := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKeyBase64 == "" {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY cannot be empty")
	}
	jwtSigningKey, err := base64.StdEncoding.DecodeString(jwtSigningKeyBase64)
	if err != nil {
		return Config{}, errors.Wrap(err, "JWT_SIGNING_KEY is not valid base64")
	}
	tokenExpiryHours := 72
	if tokenExpiryHoursStr := os.Getenv("TOKEN_EXPIRY_HOURS"); tokenExpiryHoursStr != "" {
		tokenExpiryHours, err = strconv.Atoi(tokenExpiryHoursStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "TOKEN_EXPIRY_HOURS is not a valid number")
		}
	}
	env := os.Getenv("ENV")
	if env == "" {
		env = "dev"
	}
	siteName := os.Getenv("SITE_NAME")
	if siteName == "" {
		return Config{}, fmt.Errorf("SITE_NAME cannot be empty")
	}
	siteHost := os.Getenv("SITE_HOST")
	if siteHost == "" {
		return Config{}, fmt.Errorf("SITE_HOST cannot be empty")
	}
	urlProtocol := os.Getenv("URL_PROTOCOL")
	if urlProtocol == "" {
		urlProtocol = "https://"
	}
	storageEndpoint := os.Getenv("STORAGE_ENDPOINT")
	if storageEndpoint == "" {
		return Config{}, fmt.Errorf("STORAGE_ENDPOINT cannot be empty")
	}
	storageAccessKey := os.Getenv("STORAGE_ACCESS_KEY")
	if storageAccessKey == "" {
		return Config{}, fmt.Errorf("STORAGE_ACCESS_KEY cannot be empty")
	}
	storageSecretKey := os.Getenv("STORAGE_SECRET_KEY")
	if storageSecretKey == "" {
		return Config{}, fmt.Errorf("STORAGE_SECRET_KEY cannot be empty")
	}
	storageBucket := os.Getenv("STORAGE_BUCKET")
	if storageBucket == "" {
		return Config{}, fmt.Errorf("STORAGE_BUCKET cannot be empty")
	}
	storageSecure := true
	if storageSecureStr := os.Getenv("STORAGE_SECURE"); storageSecureStr != "" {
		storageSecure, err = strconv.ParseBool(storageSecureStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "STORAGE_SECURE is not a valid boolean")
		}
	}

	return Config{
		Port:              port,
		DatabaseUser:      databaseUser,
		DatabasePassword:  databasePassword,
		DatabaseHost:      databaseHost,
		DatabasePort:      databasePort,
		DatabaseName:      databaseName,
		DatabaseSSLMode:   databaseSSLMode,
		JwtSigningKey:     jwtSigningKey,
		TokenExpiryHours:  tokenExpiryHours,
		Env:               env,
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SiteName:          siteName,
		SiteHost:          siteHost,
		URLProtocol:       urlProtocol,
		StorageEndpoint:   storageEndpoint,
		StorageAccessKey:  storageAccessKey,
		StorageSecretKey:  storageSecretKey,
		StorageBucket:     storageBucket,
		StorageSecure:     storageSecure,
		AdminSeedEmail:    os.Getenv("ADMIN_SEED_EMAIL"),
		AdminSeedPassword: os.Getenv("ADMIN_SEED_PASSWORD"),
		AdminSeedName:     os.Getenv("ADMIN_SEED_NAME"),
	}, nil
}
