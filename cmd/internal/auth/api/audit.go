package authapi

import (
	"context"
	"net"
	"strings"
	"time"

	"pedeai/cmd/identity"
)

const auditTimeout = 2 * time.Second

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.register", userID, ip, ua, nil)
}

func (h *Handler) auditLoginFailed(ctx context.Context, userID string, ip net.IP, ua, email, reason string) {
	h.insertAudit(ctx, "auth.login.failed", userID, ip, ua, map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua, tokenFP string) {
	h.insertAudit(ctx, "auth.login.success", userID, ip, ua, map[string]any{
		"token_fp": tokenFP,
	})
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua, email string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.login.rate_limited", "", ip, ua, map[string]any{
		"email":         email,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditLogout(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.logout", userID, ip, ua, nil)
}

// insertAudit is best effort: a failed insert is logged and never fails the request.
// It detaches from the request context so a client disconnect does not drop the row.
func (h *Handler) insertAudit(ctx context.Context, action, userID string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.auditor == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	err := h.auditor.RecordAudit(ctx, identity.AuditEntry{
		UserID:    userID,
		Action:    action,
		IP:        ip,
		UserAgent: strings.TrimSpace(ua),
		Meta:      meta,
		At:        h.now().UTC(),
	})
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}
