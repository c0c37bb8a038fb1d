// Package auditcontext carries request-scoped actor, client and ledger
// metadata used by audit logging, structured logs and spans.
package auditcontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type ipAddressKey struct{}
type userAgentKey struct{}
type actorKey struct{}
type ledgerKey struct{}

type actor struct {
	Type string
	ID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, ipAddressKey{}, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	return stringValue(ctx, ipAddressKey{})
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	return stringValue(ctx, userAgentKey{})
}

// WithActor records who is performing the current operation.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	actorType = strings.TrimSpace(actorType)
	if actorType == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor{Type: actorType, ID: strings.TrimSpace(actorID)})
}

// ActorFromContext returns the actor type and id, or empty strings when unset.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey{}).(actor)
	if !ok {
		return "", ""
	}
	return value.Type, value.ID
}

// Ledger names the part of the ledger a request works on. Resource is the
// collection addressed by the route, for example "agents" or "sales".
type Ledger struct {
	Resource string
	AgentID  string
	SaleID   string
}

// WithLedger merges the non-empty fields of target into the ledger carried by ctx.
func WithLedger(ctx context.Context, target Ledger) context.Context {
	current := LedgerFromContext(ctx)
	merged := current
	if resource := strings.TrimSpace(target.Resource); resource != "" {
		merged.Resource = resource
	}
	if agentID := strings.TrimSpace(target.AgentID); agentID != "" {
		merged.AgentID = agentID
	}
	if saleID := strings.TrimSpace(target.SaleID); saleID != "" {
		merged.SaleID = saleID
	}
	if merged == current {
		return ctx
	}
	return context.WithValue(ctx, ledgerKey{}, merged)
}

func LedgerFromContext(ctx context.Context) Ledger {
	if ctx == nil {
		return Ledger{}
	}
	value, _ := ctx.Value(ledgerKey{}).(Ledger)
	return value
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
