// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	membershipstore "github.com/dalemusser/gatehub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/gatehub/internal/app/store/organizations"
	userstore "github.com/dalemusser/gatehub/internal/app/store/users"
	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// GateHub uses it to seed the bootstrap admin: a super_admin membership so a
// fresh deployment has someone who can provision organizations and devices.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.BootstrapAdminEmail == "" {
		return nil
	}
	return ensureBootstrapAdmin(ctx, deps, appCfg.BootstrapAdminEmail, appCfg.BootstrapOrgName, logger)
}

// ensureBootstrapAdmin makes sure the named organization exists, the admin
// user exists, and the user holds an active super_admin membership in that
// organization. It is idempotent; a fully seeded deployment is a no-op.
func ensureBootstrapAdmin(ctx context.Context, deps DBDeps, email, orgName string, logger *zap.Logger) error {
	db := deps.GateHubMongoDatabase
	orgs := organizationstore.New(db)
	users := userstore.New(db)
	memberships := membershipstore.New(db)

	org, err := orgs.FindByName(ctx, orgName)
	if errors.Is(err, organizationstore.ErrNotFound) {
		org, err = orgs.Create(ctx, models.Organization{
			Name:     orgName,
			TimeZone: "UTC",
		})
		if err != nil {
			return fmt.Errorf("create bootstrap organization: %w", err)
		}
		logger.Info("created bootstrap organization",
			zap.String("name", orgName),
			zap.String("organization_id", org.ID.Hex()),
		)
	} else if err != nil {
		return fmt.Errorf("find bootstrap organization: %w", err)
	}

	user, err := users.FindByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		user, err = users.Create(ctx, models.User{
			FullName: email,
			Email:    email,
		})
		if err != nil {
			return fmt.Errorf("create bootstrap admin user: %w", err)
		}
		logger.Info("created bootstrap admin user",
			zap.String("email", email),
			zap.String("user_id", user.ID.Hex()),
		)
	} else if err != nil {
		return fmt.Errorf("find bootstrap admin user: %w", err)
	}

	existing, err := memberships.FindActiveByUserAndOrg(ctx, user.ID, org.ID)
	if err == nil && existing.Role == models.RoleSuperAdmin {
		return nil
	}
	if err != nil && !errors.Is(err, membershipstore.ErrNotFound) {
		return fmt.Errorf("find bootstrap membership: %w", err)
	}

	_, err = memberships.Create(ctx, models.Membership{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           models.RoleSuperAdmin,
	})
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		// A super_admin membership exists but is inactive; reactivate it.
		_, err = db.Collection("memberships").UpdateOne(ctx,
			bson.M{
				"user_id":         user.ID,
				"organization_id": org.ID,
				"role":            models.RoleSuperAdmin,
			},
			bson.M{"$set": bson.M{"status": status.Active, "updated_at": time.Now().UTC()}},
		)
		if err != nil {
			return fmt.Errorf("reactivate bootstrap membership: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("create bootstrap membership: %w", err)
	}

	logger.Info("granted bootstrap super_admin membership",
		zap.String("email", email),
		zap.String("organization", orgName),
	)
	return nil
}
