package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// User is the minimal user projection the migration needs.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// UserSource provides read access to the application's user records.
type UserSource interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// MembershipSource reports whether a user already belongs to any tenant.
// The membership package's Store satisfies this interface.
type MembershipSource interface {
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

// OrphanCounts reports how many rows AssignOrphanedData reassigned per table.
type OrphanCounts struct {
	Uploads       int64
	Customers     int64
	Subscriptions int64
}

// DataMigrator reassigns tenant-scoped rows (uploads, billing customers,
// billing subscriptions) between tenants. Cascade constraints don't cover
// these tables, so reassignment is explicit application-level work.
type DataMigrator interface {
	// ReassignUser points all of the user's tenant-scoped rows at tenantID.
	ReassignUser(ctx context.Context, userID, tenantID uuid.UUID) error

	// ReassignOrphaned adopts rows whose tenant reference is NULL.
	ReassignOrphaned(ctx context.Context, tenantID uuid.UUID) (OrphanCounts, error)
}

// Migrator bootstraps personal tenants for users that predate multi-tenancy
// and moves their existing data under the new tenant.
type Migrator struct {
	svc         *Service
	users       UserSource
	memberships MembershipSource
	data        DataMigrator
	log         *slog.Logger
}

// NewMigrator creates a Migrator. All dependencies are required except the
// logger, which falls back to slog.Default().
func NewMigrator(svc *Service, users UserSource, memberships MembershipSource, data DataMigrator, log *slog.Logger) *Migrator {
	if svc == nil || users == nil || memberships == nil || data == nil {
		panic("tenant: Migrator dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{svc: svc, users: users, memberships: memberships, data: data, log: log}
}

// MigrateUserToTenant creates a personal tenant for the user and reassigns
// their uploads, customers, and subscriptions to it. Empty tenantName and
// subdomain get sensible defaults derived from the user record.
func (m *Migrator) MigrateUserToTenant(ctx context.Context, userID uuid.UUID, tenantName, subdomain string) (uuid.UUID, error) {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return uuid.UUID{}, err
	}

	if subdomain == "" {
		subdomain = "user-" + strings.ReplaceAll(userID.String(), "-", "")[:8]
	}
	if tenantName == "" {
		owner := user.Name
		if owner == "" {
			owner = user.Email
		}
		tenantName = fmt.Sprintf("%s's Workspace", owner)
	}

	t, err := m.svc.CreateTenant(ctx, tenantName, subdomain, userID, "")
	if err != nil {
		return uuid.UUID{}, err
	}

	if err := m.data.ReassignUser(ctx, userID, t.ID); err != nil {
		return uuid.UUID{}, fmt.Errorf("reassign data for user %s: %w", userID, err)
	}

	m.log.InfoContext(ctx, "user migrated to personal tenant",
		"user_id", userID.String(), "tenant_id", t.ID.String())

	return t.ID, nil
}

// UserMigrationError records a single user's failure in a batch migration.
type UserMigrationError struct {
	UserID uuid.UUID
	Err    error
}

// MigrationReport summarises a batch migration: how many users got a tenant
// and which ones failed. Failures never abort the batch.
type MigrationReport struct {
	Migrated int
	Errors   []UserMigrationError
}

// MigrateAllUsersToTenants creates a personal tenant for every user that
// holds no membership yet. Per-user errors are collected and reported at the
// end; the batch continues past failures.
func (m *Migrator) MigrateAllUsersToTenants(ctx context.Context) (*MigrationReport, error) {
	users, err := m.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{}
	for _, user := range users {
		exists, err := m.memberships.ExistsForUser(ctx, user.ID)
		if err != nil {
			report.Errors = append(report.Errors, UserMigrationError{UserID: user.ID, Err: err})
			continue
		}
		if exists {
			continue
		}

		if _, err := m.MigrateUserToTenant(ctx, user.ID, "", ""); err != nil {
			report.Errors = append(report.Errors, UserMigrationError{UserID: user.ID, Err: err})
			continue
		}
		report.Migrated++
	}

	return report, nil
}

// AssignOrphanedData adopts rows with a NULL tenant reference into tenantID.
// Useful after enabling multi-tenancy on a database that already holds data.
func (m *Migrator) AssignOrphanedData(ctx context.Context, tenantID uuid.UUID) (OrphanCounts, error) {
	counts, err := m.data.ReassignOrphaned(ctx, tenantID)
	if err != nil {
		return OrphanCounts{}, err
	}

	m.log.InfoContext(ctx, "orphaned rows assigned to tenant",
		"tenant_id", tenantID.String(),
		"uploads", counts.Uploads,
		"customers", counts.Customers,
		"subscriptions", counts.Subscriptions,
	)

	return counts, nil
}
