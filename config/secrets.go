package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ResolveAPIKey returns the upstream API key. In prod the key is read
// from AWS SSM Parameter Store so it never lives in the config file;
// everywhere else the plain config value is used. A lookup failure
// falls back to the config value, since the public chart endpoint works
// without a key.
func (cfg *UpstreamConfig) ResolveAPIKey(env string) string {
	if env == "prod" && cfg.APIKeyParam != "" {
		if key := getParameterStoreValue(cfg.APIKeyParam, true); key != "" {
			return key
		}
	}
	return cfg.APIKey
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
