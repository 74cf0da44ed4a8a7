package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/readback/readback/internal/flagx"
	"github.com/readback/readback/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	PublicBaseURL                string         `json:"public_base_url"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`

	AudioStorage    string         `json:"audio_storage"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	S3PresignExpiry timex.Duration `json:"s3_presign_expiry"`
	NATSURL         string         `json:"nats_url"`
	NATSBucket      string         `json:"nats_bucket"`

	OpenAIAPIKey       string         `json:"openai_api_key"`
	OpenAIBaseURL      string         `json:"openai_base_url"`
	OpenAIModel        string         `json:"openai_model"`
	SynthesisTimeout   timex.Duration `json:"synthesis_timeout"`
	SynthesisRetries   int            `json:"synthesis_retries"`
	SynthesisRateLimit float64        `json:"synthesis_rate_limit"`
	SynthesisRateBurst int            `json:"synthesis_rate_burst"`
	StoreTimeout       timex.Duration `json:"store_timeout"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:                     c.HTTPAddr,
		PublicBaseURL:                c.PublicBaseURL,
		DatabaseDSN:                  c.DatabaseDSN,
		SecretKey:                    c.SecretKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		AudioStorage:                 c.AudioStorage,
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3Bucket:                     c.S3Bucket,
		S3Region:                     c.S3Region,
		S3BaseEndpoint:               c.S3BaseEndpoint,
		S3PresignExpiry:              timex.Duration{Duration: c.S3PresignExpiry},
		NATSURL:                      c.NATSURL,
		NATSBucket:                   c.NATSBucket,
		OpenAIAPIKey:                 c.OpenAIAPIKey,
		OpenAIBaseURL:                c.OpenAIBaseURL,
		OpenAIModel:                  c.OpenAIModel,
		SynthesisTimeout:             timex.Duration{Duration: c.SynthesisTimeout},
		SynthesisRetries:             c.SynthesisRetries,
		SynthesisRateLimit:           c.SynthesisRateLimit,
		SynthesisRateBurst:           c.SynthesisRateBurst,
		StoreTimeout:                 timex.Duration{Duration: c.StoreTimeout},
		LogLevel:                     c.LogLevel,
		LogFormat:                    c.LogFormat,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.PublicBaseURL = j.PublicBaseURL
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.AudioStorage = j.AudioStorage
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.S3PresignExpiry = j.S3PresignExpiry.Duration
	c.NATSURL = j.NATSURL
	c.NATSBucket = j.NATSBucket
	c.OpenAIAPIKey = j.OpenAIAPIKey
	c.OpenAIBaseURL = j.OpenAIBaseURL
	c.OpenAIModel = j.OpenAIModel
	c.SynthesisTimeout = j.SynthesisTimeout.Duration
	c.SynthesisRetries = j.SynthesisRetries
	c.SynthesisRateLimit = j.SynthesisRateLimit
	c.SynthesisRateBurst = j.SynthesisRateBurst
	c.StoreTimeout = j.StoreTimeout.Duration
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
}

// parseJson overlays the JSON file named by -c or -config onto config.
// Keys missing from the file keep their current values. Without either flag
// nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// start from the current values so absent keys are preserved
	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}
