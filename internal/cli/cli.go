// Package cli translates command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Wollering/CTF-Assessment-Engine/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// externalIDEnv names the environment fallback for the pre-shared
// external id, so it never has to appear in shell history.
const externalIDEnv = "ASSESSMENT_EXTERNAL_ID"

// Parse processes command-line arguments. It returns a validated Config,
// a boolean indicating the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("assessment-engine", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Assessment Engine - scores cloud challenge deployments against their
published assessment criteria.

Usage:
  assessment-engine [options]

Modes:
  One-shot: pass -subject, -challenge, and -tenant to run a single
  assessment and print the result as JSON.

  Server: pass -listen to serve POST /assessments and GET /health.

Options:
`)
		flagSet.PrintDefaults()
	}

	subjectFlag := flagSet.String("subject", "", "Subject (team or user) to assess.")
	challengeFlag := flagSet.String("challenge", "", "Challenge id to assess against.")
	tenantFlag := flagSet.String("tenant", "", "Account id the subject's resources live in.")
	listenFlag := flagSet.String("listen", "", "Address for the HTTP server, e.g. ':8080'.")
	defaultTenantFlag := flagSet.String("default-tenant", "", "Tenant account used when a request names none.")
	regionFlag := flagSet.String("region", "", "AWS region. Empty uses the ambient SDK configuration.")
	catalogFlag := flagSet.String("catalog-table", "", "DynamoDB table holding challenge definitions.")
	resultsFlag := flagSet.String("results-table", "", "DynamoDB table for assessment results. Empty disables persistence.")
	bucketFlag := flagSet.String("check-bucket", "", "S3 bucket holding challenge check modules.")
	roleFlag := flagSet.String("role-name", "", "Name of the trust role provisioned in every tenant account.")
	externalIDFlag := flagSet.String("external-id", "", "Pre-shared external id for the trust role. Defaults to $"+externalIDEnv+".")
	namespaceFlag := flagSet.String("metrics-namespace", "", "CloudWatch namespace for run metrics.")
	noMetricsFlag := flagSet.Bool("no-metrics", false, "Disable metric publication.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	timeoutFlag := flagSet.Duration("check-timeout", 30*time.Second, "Hard deadline for each individual check.")
	inFlightFlag := flagSet.Int("max-in-flight", 4, "Maximum number of concurrently running checks.")
	sessionFlag := flagSet.Duration("session-duration", 15*time.Minute, "Lifetime requested for brokered tenant credentials.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *subjectFlag == "" && *listenFlag == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	externalID := *externalIDFlag
	if externalID == "" {
		externalID = os.Getenv(externalIDEnv)
	}

	config, err := app.NewConfig(app.Config{
		SubjectID:        *subjectFlag,
		ChallengeID:      *challengeFlag,
		TenantID:         *tenantFlag,
		ListenAddr:       *listenFlag,
		DefaultTenant:    *defaultTenantFlag,
		Region:           *regionFlag,
		CatalogTable:     *catalogFlag,
		ResultsTable:     *resultsFlag,
		CheckBucket:      *bucketFlag,
		RoleName:         *roleFlag,
		ExternalID:       externalID,
		MetricsNamespace: *namespaceFlag,
		DisableMetrics:   *noMetricsFlag,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		CheckTimeout:     *timeoutFlag,
		MaxInFlight:      *inFlightFlag,
		SessionDuration:  *sessionFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
