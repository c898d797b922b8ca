package service

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/internal/telemetry"
	"github.com/layer-3/turnstile/ports"
)

// Verifier decides whether a request may proceed, either on the shared
// secret or on a previously issued session record
type Verifier struct {
	secret   *Secret
	store    ports.CredentialStore
	eventPub ports.EventPublisher
	metrics  *telemetry.Metrics
}

// NewVerifier creates a new verifier
func NewVerifier(
	secret *Secret,
	store ports.CredentialStore,
	eventPub ports.EventPublisher,
) *Verifier {
	return &Verifier{
		secret:   secret,
		store:    store,
		eventPub: eventPub,
		metrics:  telemetry.GetMetrics(),
	}
}

// VerifyRequest extracts the credentials of r and verifies them
func (v *Verifier) VerifyRequest(r *http.Request) core.Verdict {
	return v.Verify(r.Context(), ExtractCredentials(r))
}

// Verify evaluates credentials. The inline credential wins over the session
// token; the store is consulted at most once.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) core.Verdict {
	var verdict core.Verdict
	if creds.Authorization != "" {
		verdict = v.verifyAuthorization(ctx, creds.Authorization)
	} else {
		verdict = v.verifySessionToken(ctx, creds.SessionToken)
	}

	v.metrics.RecordVerdict(ctx, verdict.Verified, verdict.Reason)
	return verdict
}

func (v *Verifier) verifyAuthorization(ctx context.Context, header string) core.Verdict {
	encoded, ok := strings.CutPrefix(header, basicScheme)
	if !ok {
		return core.Reject(core.ReasonInvalidPattern)
	}

	// Undecodable input simply never matches
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || !v.secret.Matches(decoded) {
		return core.Reject(core.ReasonPasswordMismatch)
	}

	verdict := core.Verdict{Verified: true, Reason: core.ReasonHeaderVerified}

	// A failed mint only skips the cookie, the secret already matched
	record, err := v.store.CreateRecord(ctx, true)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to create session record")
		v.metrics.RecordStoreError(ctx, "create")
		return verdict
	}

	verdict.NewToken = record.Token
	v.metrics.SessionsIssuedTotal.Add(ctx, 1)

	if v.eventPub != nil {
		if err := v.eventPub.PublishSessionIssued(ctx, record.ID, record.CreatedAt); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("record_id", record.ID).Msg("Failed to publish session issued event")
		}
	}

	return verdict
}

func (v *Verifier) verifySessionToken(ctx context.Context, token string) core.Verdict {
	if token == "" {
		return core.Reject(core.ReasonNoCredentials)
	}

	res := v.store.FindByToken(ctx, token)
	switch res.Status {
	case core.LookupFound:
		if !res.Record.Verified {
			return core.Reject(core.ReasonCookieNotVerified)
		}
		return core.Verdict{Verified: true, Reason: core.ReasonCookieVerified}
	case core.LookupNotFound:
		return core.Reject(core.ReasonCookieNotFound)
	default:
		zerolog.Ctx(ctx).Error().Err(res.Err).Msg("Session lookup failed")
		v.metrics.RecordStoreError(ctx, "find")
		return core.Reject(core.ReasonCookieNotFound)
	}
}
