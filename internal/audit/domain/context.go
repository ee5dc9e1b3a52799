package domain

import (
	"context"
	"strings"
)

type clientKey struct{}

type clientInfo struct {
	ipAddress string
	userAgent string
}

// WithClient stores the remote address and user agent of the request for audit entries.
func WithClient(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientInfo{
		ipAddress: strings.TrimSpace(ipAddress),
		userAgent: strings.TrimSpace(userAgent),
	})
}

func ClientFromContext(ctx context.Context) (ipAddress string, userAgent string) {
	if ctx == nil {
		return "", ""
	}
	info, _ := ctx.Value(clientKey{}).(clientInfo)
	return info.ipAddress, info.userAgent
}
