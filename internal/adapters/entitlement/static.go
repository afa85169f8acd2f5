package entitlement

import "context"

// Static is a fixed entitlement check for local/single-user deployments.
// A deployed build would swap in a client for the subscription service
// behind the same domain.Entitlements port.
type Static struct {
	privileged bool
}

func NewStatic(privileged bool) *Static {
	return &Static{privileged: privileged}
}

func (s *Static) IsPrivileged(ctx context.Context) bool {
	return s.privileged
}
