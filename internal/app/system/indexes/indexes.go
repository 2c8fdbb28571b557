// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	accesslogstore "github.com/dalemusser/gatehub/internal/app/store/accesslog"
	"github.com/dalemusser/gatehub/internal/app/store/audit"
	devicestore "github.com/dalemusser/gatehub/internal/app/store/devices"
	invitationstore "github.com/dalemusser/gatehub/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/gatehub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/gatehub/internal/app/store/organizations"
	unitstore "github.com/dalemusser/gatehub/internal/app/store/units"
	userstore "github.com/dalemusser/gatehub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
)

/*
EnsureAll is called at startup. Each store's EnsureIndexes is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique (organization_id, code) index on invitations is load-bearing:
code generation relies on it for collision detection, so a failure here has
to stop the boot rather than log and continue.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	ensure("users", userstore.New(db).EnsureIndexes)
	ensure("organizations", organizationstore.New(db).EnsureIndexes)
	ensure("units", unitstore.New(db).EnsureIndexes)
	ensure("memberships", membershipstore.New(db).EnsureIndexes)
	ensure("invitations", invitationstore.New(db).EnsureIndexes)
	ensure("access_logs", accesslogstore.New(db).EnsureIndexes)
	ensure("devices", devicestore.New(db).EnsureIndexes)
	ensure("audit_events", audit.New(db).EnsureIndexes)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
