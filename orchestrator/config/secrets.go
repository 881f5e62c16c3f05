// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"vocalbridge/platform/shared/logger"
)

const secretARNPrefix = "arn:aws:secretsmanager:"

// SecretResolver fetches a secret as a map of string fields.
type SecretResolver interface {
	GetSecret(ctx context.Context, secretID string) (map[string]string, error)
}

// IsSecretReference reports whether value names a Secrets Manager secret.
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, secretARNPrefix)
}

// ResolveSecrets replaces provider API keys that are secret ARNs with the
// secret's "api_key" field, or its whole value for plain-string secrets.
func (c *Config) ResolveSecrets(ctx context.Context, resolver SecretResolver) error {
	for name, p := range c.Providers {
		if !p.Enabled || !IsSecretReference(p.APIKey) {
			continue
		}
		if resolver == nil {
			return fmt.Errorf("provider %s: api key is a secret reference but no resolver is configured", name)
		}
		secret, err := resolver.GetSecret(ctx, p.APIKey)
		if err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
		key := secret["api_key"]
		if key == "" {
			key = secret["value"]
		}
		if key == "" {
			return fmt.Errorf("provider %s: secret %s has no api_key field", name, maskARN(p.APIKey))
		}
		p.APIKey = key
		c.Providers[name] = p
	}
	return nil
}

type secretsGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type secretCacheEntry struct {
	value     map[string]string
	expiresAt time.Time
}

// AWSSecretsManager resolves secrets from AWS Secrets Manager with a
// read-through cache.
type AWSSecretsManager struct {
	client secretsGetter
	cache  map[string]*secretCacheEntry
	mu     sync.RWMutex
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time
}

// AWSSecretsManagerOptions holds options for NewAWSSecretsManager.
type AWSSecretsManagerOptions struct {
	Region   string
	CacheTTL time.Duration
	Logger   *logger.Logger
}

// NewAWSSecretsManager creates a resolver using the default AWS credential chain.
func NewAWSSecretsManager(ctx context.Context, opts AWSSecretsManagerOptions) (*AWSSecretsManager, error) {
	var cfgOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSecretsManager(secretsmanager.NewFromConfig(awsCfg), opts), nil
}

func newSecretsManager(client secretsGetter, opts AWSSecretsManagerOptions) *AWSSecretsManager {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("secrets-manager")
	}
	return &AWSSecretsManager{
		client: client,
		cache:  make(map[string]*secretCacheEntry),
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// GetSecret returns the secret's JSON fields. A secret that is not a JSON
// object is returned under the "value" key.
func (s *AWSSecretsManager) GetSecret(ctx context.Context, secretID string) (map[string]string, error) {
	s.mu.RLock()
	entry, ok := s.cache[secretID]
	s.mu.RUnlock()
	if ok && s.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", maskARN(secretID), err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", maskARN(secretID))
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &fields); err != nil {
		fields = map[string]string{"value": *result.SecretString}
	}

	s.mu.Lock()
	s.cache[secretID] = &secretCacheEntry{value: fields, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	s.log.Info("", "", "secret resolved", map[string]interface{}{
		"secret": maskARN(secretID),
	})
	return fields, nil
}

// Invalidate drops a cached secret.
func (s *AWSSecretsManager) Invalidate(secretID string) {
	s.mu.Lock()
	delete(s.cache, secretID)
	s.mu.Unlock()
}

// maskARN keeps only the last 8 characters for logs.
func maskARN(arn string) string {
	if len(arn) <= 12 {
		return "***"
	}
	return "..." + arn[len(arn)-8:]
}
