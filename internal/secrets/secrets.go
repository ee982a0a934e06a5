package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrSecretNotFound means the requested key has no value.
var ErrSecretNotFound = errors.New("secret not found")

// Provider resolves named secret values.
type Provider interface {
	Value(ctx context.Context, key string) (string, error)
}

// EnvProvider reads secrets from the process environment.
type EnvProvider struct{}

// Value returns the environment variable named key.
func (EnvProvider) Value(_ context.Context, key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return v, nil
}

// SecretsManagerAPI is the subset of the Secrets Manager client in use.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider reads fields of one JSON secret stored in AWS Secrets Manager.
type SecretsManagerProvider struct {
	client   SecretsManagerAPI
	secretID string
}

// NewSecretsManagerProvider binds the provider to a secret id or ARN.
func NewSecretsManagerProvider(client SecretsManagerAPI, secretID string) *SecretsManagerProvider {
	return &SecretsManagerProvider{client: client, secretID: secretID}
}

// Value fetches the secret and returns the field named key.
func (p *SecretsManagerProvider) Value(ctx context.Context, key string) (string, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", p.secretID, err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &fields); err != nil {
		return "", fmt.Errorf("decode secret %s: %w", p.secretID, err)
	}
	v, ok := fields[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s in %s", ErrSecretNotFound, key, p.secretID)
	}
	return v, nil
}

type cachedValue struct {
	value     string
	expiresAt time.Time
}

// CachedProvider memoizes successful lookups for a TTL. Failures are not cached.
type CachedProvider struct {
	next Provider
	ttl  time.Duration
	now  func() time.Time

	mu     sync.Mutex
	values map[string]cachedValue
}

// NewCachedProvider wraps next. A non-positive ttl disables caching.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, ttl: ttl, now: time.Now, values: make(map[string]cachedValue)}
}

// Value returns the cached value for key or refreshes it from the wrapped provider.
func (c *CachedProvider) Value(ctx context.Context, key string) (string, error) {
	if c.ttl <= 0 {
		return c.next.Value(ctx, key)
	}

	c.mu.Lock()
	cached, ok := c.values[key]
	c.mu.Unlock()
	if ok && c.now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	v, err := c.next.Value(ctx, key)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.values[key] = cachedValue{value: v, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return v, nil
}
