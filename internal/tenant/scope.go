// Package tenant decide o filtro de clinic_id aplicado a cada consulta.
// Nenhuma query roda sem um clinic_id concreto ou um bypass explícito de
// super_admin; esse é o invariante central de isolamento entre clínicas.
package tenant

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
)

// ErrNoClinic means the token carries no clinic and the caller is not a super admin.
var ErrNoClinic = errors.New("clinic not identified")

// Scope is the tenant filter for one repository call.
// Bypass=true means no clinic filter (super_admin only); otherwise ClinicID is set.
type Scope struct {
	ClinicID *int64
	Bypass   bool
}

// Resolve derives the Scope from the request claims. op names the operation
// for the audit log entry written on every super-admin bypass.
func Resolve(ctx context.Context, op string) (Scope, error) {
	c := auth.ClaimsFrom(ctx)
	if c == nil {
		return Scope{}, ErrNoClinic
	}
	if c.Role == auth.RoleSuperAdmin {
		log.Info().
			Str("event", "tenant_bypass").
			Int64("user_id", c.UserID).
			Str("username", c.Username).
			Str("operation", op).
			Msg("super admin query without clinic filter")
		return Scope{Bypass: true, ClinicID: c.ClinicID}, nil
	}
	if c.ClinicID == nil {
		return Scope{}, ErrNoClinic
	}
	return Scope{ClinicID: c.ClinicID}, nil
}

// Clinic returns the concrete clinic id, or nil when the scope bypasses the filter.
func (s Scope) Clinic() *int64 {
	if s.Bypass {
		return nil
	}
	return s.ClinicID
}
