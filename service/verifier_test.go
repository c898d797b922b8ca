package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/turnstile/core"
)

func TestVerifier_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("matching secret verifies and mints a token", func(t *testing.T) {
		st := newSpyStore()
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{Authorization: basic(testSecret)})
		require.True(t, verdict.Verified)
		require.Equal(t, core.ReasonHeaderVerified, verdict.Reason)
		require.NotEmpty(t, verdict.NewToken)

		res := st.MemoryStore.FindByToken(ctx, verdict.NewToken)
		require.Equal(t, core.LookupFound, res.Status)
		require.True(t, res.Record.Verified)
	})

	t.Run("every successful check mints a distinct token", func(t *testing.T) {
		st := newSpyStore()
		v := NewVerifier(newTestSecret(t), st, nil)

		tokens := make(map[string]struct{})
		for i := 0; i < 5; i++ {
			verdict := v.Verify(ctx, Credentials{Authorization: basic(testSecret)})
			require.True(t, verdict.Verified)
			tokens[verdict.NewToken] = struct{}{}
		}
		require.Len(t, tokens, 5)
		require.Equal(t, 5, st.Len())
	})

	t.Run("wrong secret is rejected without creating a record", func(t *testing.T) {
		for _, secret := range []string{"wrong-secret", "correct-secret!", "", "CORRECT-SECRET"} {
			st := newSpyStore()
			v := NewVerifier(newTestSecret(t), st, nil)

			verdict := v.Verify(ctx, Credentials{Authorization: basic(secret)})
			require.Equal(t, core.Reject(core.ReasonPasswordMismatch), verdict, "secret %q", secret)

			finds, creates := st.calls()
			require.Zero(t, finds)
			require.Zero(t, creates)
		}
	})

	t.Run("undecodable credential is a mismatch", func(t *testing.T) {
		st := newSpyStore()
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{Authorization: "Basic !!!not-base64!!!"})
		require.Equal(t, core.Reject(core.ReasonPasswordMismatch), verdict)
		require.Zero(t, st.Len())
	})

	t.Run("wrong scheme is an invalid pattern", func(t *testing.T) {
		for _, header := range []string{
			"Bearer " + basic(testSecret)[6:],
			"basic " + basic(testSecret)[6:],
			"Basic" + basic(testSecret)[6:],
			"Digest username=x",
			testSecret,
		} {
			st := newSpyStore()
			v := NewVerifier(newTestSecret(t), st, nil)

			verdict := v.Verify(ctx, Credentials{Authorization: header})
			require.Equal(t, core.Reject(core.ReasonInvalidPattern), verdict, "header %q", header)

			finds, creates := st.calls()
			require.Zero(t, finds)
			require.Zero(t, creates)
		}
	})

	t.Run("invalid pattern does not depend on store state", func(t *testing.T) {
		st := newSpyStore()
		st.findErr = errStoreDown
		st.createErr = errStoreDown
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{Authorization: "Token abc", SessionToken: "abc123"})
		require.Equal(t, core.Reject(core.ReasonInvalidPattern), verdict)
	})

	t.Run("failed mint keeps the verdict but drops the token", func(t *testing.T) {
		st := newSpyStore()
		st.createErr = errStoreDown
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{Authorization: basic(testSecret)})
		require.True(t, verdict.Verified)
		require.Equal(t, core.ReasonHeaderVerified, verdict.Reason)
		require.Empty(t, verdict.NewToken)
	})

	t.Run("inline credential wins over a valid cookie", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{Authorization: basic(testSecret), SessionToken: "abc123"})
		require.True(t, verdict.Verified)
		require.NotEmpty(t, verdict.NewToken)
		require.NotEqual(t, "abc123", verdict.NewToken)

		finds, creates := st.calls()
		require.Zero(t, finds)
		require.Equal(t, 1, creates)
	})

	t.Run("inline mismatch does not fall back to the cookie", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{Authorization: basic("nope"), SessionToken: "abc123"})
		require.Equal(t, core.Reject(core.ReasonPasswordMismatch), verdict)
	})
}

func TestVerifier_SessionToken(t *testing.T) {
	ctx := context.Background()

	t.Run("no credentials at all", func(t *testing.T) {
		st := newSpyStore()
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{})
		require.Equal(t, core.Reject(core.ReasonNoCredentials), verdict)

		finds, creates := st.calls()
		require.Zero(t, finds)
		require.Zero(t, creates)
	})

	t.Run("unknown token", func(t *testing.T) {
		v := NewVerifier(newTestSecret(t), newSpyStore(), nil)

		verdict := v.Verify(ctx, Credentials{SessionToken: "abc123"})
		require.Equal(t, core.Reject(core.ReasonCookieNotFound), verdict)
	})

	t.Run("unverified record", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: false})
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{SessionToken: "abc123"})
		require.Equal(t, core.Reject(core.ReasonCookieNotVerified), verdict)
	})

	t.Run("verified record", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{SessionToken: "abc123"})
		require.Equal(t, core.Verdict{Verified: true, Reason: core.ReasonCookieVerified}, verdict)
	})

	t.Run("repeated verification never mints", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		v := NewVerifier(newTestSecret(t), st, nil)

		first := v.Verify(ctx, Credentials{SessionToken: "abc123"})
		for i := 0; i < 10; i++ {
			require.Equal(t, first, v.Verify(ctx, Credentials{SessionToken: "abc123"}))
		}

		finds, creates := st.calls()
		require.Equal(t, 11, finds)
		require.Zero(t, creates)
		require.Equal(t, 1, st.Len())
	})

	t.Run("store failure fails closed", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		st.findErr = errStoreDown
		v := NewVerifier(newTestSecret(t), st, nil)

		verdict := v.Verify(ctx, Credentials{SessionToken: "abc123"})
		require.Equal(t, core.Reject(core.ReasonCookieNotFound), verdict)
		require.NotContains(t, verdict.Reason, "connection refused")
	})

	t.Run("canceled context fails closed", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		v := NewVerifier(newTestSecret(t), st, nil)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		verdict := v.Verify(canceled, Credentials{SessionToken: "abc123"})
		require.False(t, verdict.Verified)
	})
}

func TestVerifier_Events(t *testing.T) {
	ctx := context.Background()

	t.Run("minted session is announced", func(t *testing.T) {
		pub := &recordingPublisher{}
		v := NewVerifier(newTestSecret(t), newSpyStore(), pub)

		verdict := v.Verify(ctx, Credentials{Authorization: basic(testSecret)})
		require.True(t, verdict.Verified)
		require.Len(t, pub.events, 1)
		require.NotEmpty(t, pub.events[0].recordID)
		require.NotEqual(t, verdict.NewToken, pub.events[0].recordID)
	})

	t.Run("cookie verification is not announced", func(t *testing.T) {
		st := newSpyStore()
		st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
		pub := &recordingPublisher{}
		v := NewVerifier(newTestSecret(t), st, pub)

		require.True(t, v.Verify(ctx, Credentials{SessionToken: "abc123"}).Verified)
		require.Empty(t, pub.events)
	})

	t.Run("publish failure is ignored", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		v := NewVerifier(newTestSecret(t), newSpyStore(), pub)

		verdict := v.Verify(ctx, Credentials{Authorization: basic(testSecret)})
		require.True(t, verdict.Verified)
		require.NotEmpty(t, verdict.NewToken)
	})
}

func TestVerifier_VerifyRequest(t *testing.T) {
	st := newSpyStore()
	st.Put(core.SessionRecord{ID: "id-1", Token: "abc123", Verified: true})
	v := NewVerifier(newTestSecret(t), st, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc123"})
	require.Equal(t, core.ReasonCookieVerified, v.VerifyRequest(r).Reason)

	r = httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	r.Header.Set("Authorization", basic(testSecret))
	verdict := v.VerifyRequest(r)
	require.Equal(t, core.ReasonHeaderVerified, verdict.Reason)
	require.NotEmpty(t, verdict.NewToken)
}
