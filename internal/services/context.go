package services

import "context"

type contextKey string

const (
	mountKey     contextKey = "mount"
	identityKey  contextKey = "identity"
	requestIDKey contextKey = "request_id"
)

// WithMount annotates context with the mount point being processed.
func WithMount(ctx context.Context, mount string) context.Context {
	if mount == "" {
		return ctx
	}
	return context.WithValue(ctx, mountKey, mount)
}

// MountFromContext returns the mount point if present.
func MountFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(mountKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithIdentity annotates context with the platform:videoID dedup key.
func WithIdentity(ctx context.Context, identity string) context.Context {
	if identity == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the dedup key if present.
func IdentityFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(identityKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
