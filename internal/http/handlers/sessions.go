package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erikakettleson-openai/erika-webrtc/internal/core/credential"
	"github.com/erikakettleson-openai/erika-webrtc/internal/repo/memory"
)

type CredentialIssuer interface {
	IssueSessionCredential(ctx context.Context) (*credential.Credential, error)
}

type SessionsHandler struct {
	Broker CredentialIssuer
	Repo   *memory.IssuanceRepo
	Log    *slog.Logger
	now    func() time.Time
}

func NewSessionsHandler(b CredentialIssuer, repo *memory.IssuanceRepo, log *slog.Logger) *SessionsHandler {
	return &SessionsHandler{Broker: b, Repo: repo, Log: log, now: time.Now}
}

// Issue returns the vendor's session body verbatim, one vendor call per
// request.
func (h *SessionsHandler) Issue(c *gin.Context) {
	cred, err := h.Broker.IssueSessionCredential(c.Request.Context())
	if err != nil {
		h.Log.Error("issuing session credential", "err", err)
		c.String(http.StatusInternalServerError, "Failed to fetch ephemeral key")
		return
	}
	h.Repo.Save(memory.Issuance{
		SessionID: cred.SessionID,
		Model:     cred.Model,
		ExpiresAt: cred.ExpiresAt,
		IssuedAt:  h.now(),
	})
	c.Data(http.StatusOK, "application/json", cred.Raw)
}

// Summary reports what was issued for a vendor session id, without the secret.
func (h *SessionsHandler) Summary(c *gin.Context) {
	iss, ok := h.Repo.Get(c.Param("id"), h.now())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, iss)
}
