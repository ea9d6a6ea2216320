// Package app wires the assessment engine's components together and
// exposes its two entrypoints: a one-shot CLI run and an HTTP front door.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/Wollering/CTF-Assessment-Engine/internal/assessment"
	"github.com/Wollering/CTF-Assessment-Engine/internal/challenge"
	"github.com/Wollering/CTF-Assessment-Engine/internal/checkmod"
	"github.com/Wollering/CTF-Assessment-Engine/internal/credentials"
	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/executor"
	"github.com/Wollering/CTF-Assessment-Engine/internal/metrics"
	"github.com/Wollering/CTF-Assessment-Engine/internal/persist"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
	"github.com/Wollering/CTF-Assessment-Engine/internal/scoring"
	"github.com/Wollering/CTF-Assessment-Engine/probes/cfnstack"
	"github.com/Wollering/CTF-Assessment-Engine/probes/httpget"
	"github.com/Wollering/CTF-Assessment-Engine/probes/s3object"
	"github.com/Wollering/CTF-Assessment-Engine/probes/wsconnect"
)

// Runner is the engine surface the entrypoints depend on.
type Runner interface {
	Run(ctx context.Context, req assessment.Request) (*assessment.Result, error)
}

// App encapsulates the engine's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	runner Runner
}

// New builds a fully wired App: AWS clients from the ambient credential
// chain, the built-in probe registry, and the run pipeline.
func New(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	logger.Debug("AWS configuration loaded.", "region", awsCfg.Region)

	registry := defaultProbes()
	logger.Debug("Probe handlers registered.", "probes", registry.Names())

	definitions := challenge.NewLoader(
		challenge.NewDynamoCatalog(dynamodb.NewFromConfig(awsCfg), cfg.CatalogTable),
	)
	modules := checkmod.NewLoader(
		checkmod.NewS3Store(s3.NewFromConfig(awsCfg), cfg.CheckBucket),
		registry,
	)
	broker := credentials.NewBroker(
		sts.NewFromConfig(awsCfg), cfg.RoleName, cfg.ExternalID, cfg.SessionDuration,
	)
	runner := executor.New(executor.Config{
		CheckTimeout: cfg.CheckTimeout,
		MaxInFlight:  cfg.MaxInFlight,
	})

	feedback, err := scoring.NewFeedbackGenerator(nil)
	if err != nil {
		return nil, err
	}

	var persister assessment.Persister
	if cfg.ResultsTable != "" {
		persister = persist.NewDynamoPersister(dynamodb.NewFromConfig(awsCfg), cfg.ResultsTable)
	}
	var reporter assessment.Reporter
	if !cfg.DisableMetrics {
		reporter = metrics.NewCloudWatchReporter(cloudwatch.NewFromConfig(awsCfg), cfg.MetricsNamespace)
	}

	engine := assessment.New(
		definitions, modules, broker, runner,
		feedback, persister, reporter,
		awsCfg.Region,
	)

	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		runner: engine,
	}, nil
}

// defaultProbes registers the built-in probe handlers check modules may
// reference.
func defaultProbes() *probe.Registry {
	reg := probe.NewRegistry()
	reg.Register(cfnstack.New())
	reg.Register(s3object.New())
	reg.Register(httpget.New())
	reg.Register(wsconnect.New())
	return reg
}
