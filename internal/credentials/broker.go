package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// DefaultSessionDuration is the shortest session lifetime STS allows.
// The engine always requests the shortest practical window; the app config
// verifies it still exceeds the worst-case run duration.
const DefaultSessionDuration = 15 * time.Minute

// AssumeRoleAPI is the slice of the STS client the broker needs.
type AssumeRoleAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Broker exchanges the engine's identity for tenant-scoped credentials.
type Broker struct {
	client     AssumeRoleAPI
	roleName   string
	externalID string
	duration   time.Duration
}

// NewBroker wires a Broker. roleName is the name of the trust role every
// participating tenant provisions; externalID is the pre-shared secret the
// tenant's trust policy requires.
func NewBroker(client AssumeRoleAPI, roleName, externalID string, duration time.Duration) *Broker {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &Broker{
		client:     client,
		roleName:   roleName,
		externalID: externalID,
		duration:   duration,
	}
}

// Assume requests a scoped triple for the given tenant. Any rejection —
// missing trust grant, external id mismatch, throttle — surfaces as an
// AssumeRoleError; the engine produces no partial score past this point.
func (b *Broker) Assume(ctx context.Context, tenantID string) (*Credentials, error) {
	const op = "credentials.Broker.Assume"
	logger := ctxlog.FromContext(ctx).With("tenant_id", tenantID)

	if tenantID == "" {
		return nil, fault.New(fault.AssumeRole, op, "empty tenant id")
	}

	sessionName := fmt.Sprintf("assessment-%s", uuid.NewString()[:8])
	out, err := b.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(TenantRoleARN(tenantID, b.roleName)),
		RoleSessionName: aws.String(sessionName),
		ExternalId:      aws.String(b.externalID),
		DurationSeconds: aws.Int32(int32(b.duration.Seconds())),
	})
	if err != nil {
		// The underlying STS error never carries secrets, only the denial.
		return nil, fault.Wrap(fault.AssumeRole, op, err)
	}
	if out.Credentials == nil || out.Credentials.AccessKeyId == nil {
		return nil, fault.New(fault.AssumeRole, op, "trust boundary returned no credentials for tenant %s", tenantID)
	}

	creds := &Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expiration:      aws.ToTime(out.Credentials.Expiration),
	}

	logger.Info("Assumed tenant role.",
		"session", sessionName,
		"expires_at", creds.Expiration,
	)
	return creds, nil
}
