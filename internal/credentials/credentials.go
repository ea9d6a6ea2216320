// Package credentials implements the cross-account credential exchange.
//
// The broker presents the engine's own identity plus a pre-shared external
// id to the target tenant's trust boundary and receives a short-lived
// key/secret/token triple scoped to that tenant. The external id exists to
// block a confused-deputy path where a third party points the broker at a
// tenant that never granted it trust.
package credentials

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
)

// Credentials is the brokered triple for one assessment run. It is
// read-only shared data for the run's duration and is never persisted.
// Every serialization surface is blanked: the fields are excluded from
// JSON, and both fmt and slog render a redacted placeholder.
type Credentials struct {
	AccessKeyID     string    `json:"-"`
	SecretAccessKey string    `json:"-"`
	SessionToken    string    `json:"-"`
	Expiration      time.Time `json:"-"`
}

// Expired reports whether the triple is no longer usable at the given
// instant. A small skew margin avoids handing a check credentials that die
// mid-call.
func (c *Credentials) Expired(now time.Time) bool {
	const skew = 10 * time.Second
	return !c.Expiration.IsZero() && !now.Add(skew).Before(c.Expiration)
}

// String implements fmt.Stringer.
func (c *Credentials) String() string {
	return "[redacted credentials]"
}

// LogValue implements slog.LogValuer so a triple passed to a logger never
// leaks key material.
func (c *Credentials) LogValue() slog.Value {
	return slog.StringValue("[redacted credentials]")
}

// AWSConfig builds a client configuration carrying the brokered triple,
// for probes acting inside the target tenant.
func (c *Credentials) AWSConfig(region string) aws.Config {
	return aws.Config{
		Region: region,
		Credentials: awscreds.NewStaticCredentialsProvider(
			c.AccessKeyID, c.SecretAccessKey, c.SessionToken,
		),
	}
}

// TenantRoleARN derives the role identifier the broker assumes in a target
// account.
func TenantRoleARN(tenantID, roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", tenantID, roleName)
}
