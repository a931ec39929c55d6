package http

import (
	"net/http"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
)

// LivezHandler godoc
//
//	@Summary		Liveness check
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	dreamsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, dreamsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Checks the database connection and that session keys are loaded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	dreamsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	dreamsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, km *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &dreamsdk.HealthChecks{Database: "ok", Signer: "ok"}
		overall := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overall = "degraded"
			code = http.StatusServiceUnavailable
		}

		if !km.IsReady() {
			checks.Signer = "error: no keys loaded"
			overall = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, dreamsdk.HealthResponse{
			Status:  overall,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the public keys sessions are signed with. The set is
// empty when sessions use a shared secret.
//
//	@Summary	Get JWKS
//	@Tags		well-known
//	@Produce	json
//	@Success	200	{object}	dreamsdk.JWKSResponse
//	@Router		/.well-known/jwks.json [get].
func JWKSHandler(km *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, dreamsdk.JWKSResponse(km.PublicJWKS()))
	}
}
