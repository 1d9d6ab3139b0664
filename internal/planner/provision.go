package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/DeafMist/trip-planner/internal/genai"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/places"
	"github.com/DeafMist/trip-planner/internal/store"
)

// Secret names resolved at provisioning time.
const (
	SecretMapsKey  = "MAPS_API_KEY"
	SecretGenAIKey = "GOOGLE_AI_API_KEY"
)

// SecretSource resolves a named credential.
type SecretSource interface {
	Secret(name string) (string, error)
}

// EnvSecrets reads a secret from the environment first and then from a file
// named after the secret inside Dir, e.g. /run/secrets/MAPS_API_KEY.
type EnvSecrets struct {
	Dir string
}

func (s EnvSecrets) Secret(name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, nil
	}
	if s.Dir != "" {
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				return v, nil
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read secret %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("secret %s is not set", name)
}

// Clients are the external collaborators shared by every run of a process.
type Clients struct {
	Generator genai.Generator
	Places    Places
	Store     PlanStore

	close func(context.Context) error
}

// Close releases connections held by the clients.
func (c *Clients) Close(ctx context.Context) error {
	if c == nil || c.close == nil {
		return nil
	}
	return c.close(ctx)
}

// BuildFunc constructs the clients. It is called at most once.
type BuildFunc func(ctx context.Context) (*Clients, error)

// Provisioner memoizes client construction for the process lifetime. A
// construction failure is cached and returned on every call.
type Provisioner struct {
	build   BuildFunc
	once    sync.Once
	clients *Clients
	err     error
}

func NewProvisioner(build BuildFunc) *Provisioner {
	return &Provisioner{build: build}
}

// Clients returns the memoized clients, building them on first use.
func (p *Provisioner) Clients(ctx context.Context) (*Clients, error) {
	p.once.Do(func() {
		p.clients, p.err = p.build(ctx)
		if p.err == nil && p.clients == nil {
			p.err = errors.New("client builder returned no clients")
		}
	})
	return p.clients, p.err
}

// Close releases the clients if they were built.
func (p *Provisioner) Close(ctx context.Context) error {
	if p.clients == nil {
		return nil
	}
	return p.clients.Close(ctx)
}

// ExternalClients returns a BuildFunc that wires the generative-text
// client, the places client and the document store from configuration.
func ExternalClients(creds config.Credentials, common config.Common, secrets SecretSource, log *slog.Logger) BuildFunc {
	log = logger.OrDiscard(log)
	return func(ctx context.Context) (*Clients, error) {
		genKey, err := secrets.Secret(SecretGenAIKey)
		if err != nil {
			return nil, err
		}
		mapsKey, err := secrets.Secret(SecretMapsKey)
		if err != nil {
			return nil, err
		}

		gen, err := genai.New(genai.Options{
			APIKey:  genKey,
			Model:   creds.LLMModel,
			BaseURL: creds.LLMBaseURL,
		}, log)
		if err != nil {
			return nil, err
		}

		placesClient, err := places.New(mapsKey, log)
		if err != nil {
			return nil, err
		}

		mongo, err := store.Connect(ctx, common.MongoURI, common.MongoDatabase, log)
		if err != nil {
			return nil, err
		}

		log.Info("external clients ready", slog.String("model", creds.LLMModel))
		return &Clients{
			Generator: gen,
			Places:    placesClient,
			Store:     mongo.Plans(),
			close:     mongo.Close,
		}, nil
	}
}
