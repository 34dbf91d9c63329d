// Package credentials supplies the AWS credentials handed to the native handler on every
// invocation. Nothing is cached here so rotated or expiring credentials are always
// picked up by the next invocation.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	v1credentials "github.com/aws/aws-sdk-go/aws/credentials"
)

var ErrNoCredentials = errors.New("no AWS credentials available")

type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// Provider returns the credentials for a single invocation.
type Provider interface {
	Retrieve(ctx context.Context) (Credentials, error)
}

// New returns the provider registered under source.
func New(source string) (Provider, error) {
	switch source {
	case "env", "":
		return &EnvProvider{}, nil
	case "chain":
		return &ChainProvider{}, nil
	case "legacy":
		return NewLegacyProvider(), nil
	default:
		return nil, fmt.Errorf("unknown credential source: %q", source)
	}
}

// EnvProvider reads the credentials Lambda injects into the environment of the runtime.
type EnvProvider struct{}

func (p *EnvProvider) Retrieve(_ context.Context) (Credentials, error) {
	envConfig, err := config.NewEnvConfig()
	if err != nil {
		return Credentials{}, err
	}
	if !envConfig.Credentials.HasKeys() {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{
		AccessKey:    envConfig.Credentials.AccessKeyID,
		SecretKey:    envConfig.Credentials.SecretAccessKey,
		SessionToken: envConfig.Credentials.SessionToken,
	}, nil
}

// ChainProvider resolves the full default credential chain of the v2 SDK on every call.
type ChainProvider struct {
	// LoadOptions are passed to config.LoadDefaultConfig.
	LoadOptions []func(*config.LoadOptions) error
}

func (p *ChainProvider) Retrieve(ctx context.Context) (Credentials, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx, p.LoadOptions...)
	if err != nil {
		return Credentials{}, err
	}
	if awsConfig.Credentials == nil {
		return Credentials{}, ErrNoCredentials
	}
	value, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		AccessKey:    value.AccessKeyID,
		SecretKey:    value.SecretAccessKey,
		SessionToken: value.SessionToken,
	}, nil
}

// LegacyProvider uses the v1 SDK chain (environment, then shared credentials file).
type LegacyProvider struct {
	creds *v1credentials.Credentials
}

func NewLegacyProvider() *LegacyProvider {
	return &LegacyProvider{
		creds: v1credentials.NewChainCredentials([]v1credentials.Provider{
			&v1credentials.EnvProvider{},
			&v1credentials.SharedCredentialsProvider{},
		}),
	}
}

func (p *LegacyProvider) Retrieve(ctx context.Context) (Credentials, error) {
	// the v1 SDK caches until expiry, force a fresh lookup
	p.creds.Expire()
	value, err := p.creds.GetWithContext(ctx)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		AccessKey:    value.AccessKeyID,
		SecretKey:    value.SecretAccessKey,
		SessionToken: value.SessionToken,
	}, nil
}

// StaticProvider always returns the same credentials.
type StaticProvider struct {
	Value Credentials
	Err   error
}

func (p *StaticProvider) Retrieve(_ context.Context) (Credentials, error) {
	if p.Err != nil {
		return Credentials{}, p.Err
	}
	return p.Value, nil
}
