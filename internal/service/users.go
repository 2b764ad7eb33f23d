package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/church_members/internal/domain"
	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/models"
	"github.com/Skotchmaster/church_members/internal/password"
	"github.com/Skotchmaster/church_members/internal/repo"
	"github.com/Skotchmaster/church_members/internal/util"
)

type UserService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Topic  string
}

func (s *UserService) List(ctx context.Context, p util.Page) (int64, []models.User, error) {
	total, items, err := s.Repo.ListUsers(ctx, p.Offset(), p.PerPage)
	if err != nil {
		return 0, nil, wrapErr(ErrUnavailable, "cannot list users", err)
	}
	return total, items, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newErr(ErrNotFound, "user not found")
		}
		return nil, wrapErr(ErrUnavailable, "cannot load user", err)
	}
	return u, nil
}

var errLastSuperAdmin = newErr(ErrConflict, "at least one SUPER_ADMIN must remain")

// guardLastSuperAdmin fails when target is the only SUPER_ADMIN left. It must run inside
// the transaction that demotes or deletes target: the SUPER_ADMIN rows stay locked until
// commit, so two concurrent demotions cannot both see a second super admin.
func guardLastSuperAdmin(ctx context.Context, r *repo.GormRepo, target *models.User) error {
	if target.Role != domain.RoleSuperAdmin {
		return nil
	}
	ids, err := r.LockUserIDsByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return wrapErr(ErrUnavailable, "cannot lock super admins", err)
	}
	for _, id := range ids {
		if id != target.ID {
			return nil
		}
	}
	return errLastSuperAdmin
}

func (s *UserService) UpdateRole(ctx context.Context, actorID, id uint, role string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.update_role")

	newRole, err := domain.ParseRole(role)
	if err != nil {
		return nil, wrapErr(ErrValidation, "role must be one of USER, ADMIN, SUPER_ADMIN", err)
	}

	var updated *models.User
	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repo.New(tx)
		target, err := r.FindUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return newErr(ErrNotFound, "user not found")
			}
			return wrapErr(ErrUnavailable, "cannot load user", err)
		}
		if newRole != domain.RoleSuperAdmin {
			if err := guardLastSuperAdmin(ctx, r, target); err != nil {
				return err
			}
		}
		updated, err = r.UpdateUserRole(ctx, id, newRole)
		if err != nil {
			return wrapErr(ErrUnavailable, "cannot update role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.UserRoleChanged, subject(id), actorID, map[string]any{"role": newRole}))
	l.Info("role_updated", "actor_id", actorID, "user_id", id, "role", newRole)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id uint) error {
	l := logging.FromContext(ctx).With("svc", "users.delete")

	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repo.New(tx)
		target, err := r.FindUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return newErr(ErrNotFound, "user not found")
			}
			return wrapErr(ErrUnavailable, "cannot load user", err)
		}
		if err := guardLastSuperAdmin(ctx, r, target); err != nil {
			return err
		}
		if err := r.DeleteUser(ctx, id); err != nil {
			return wrapErr(ErrUnavailable, "cannot delete user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.New(events.UserDeleted, subject(id), actorID, nil))
	l.Info("user_deleted", "actor_id", actorID, "user_id", id)
	return nil
}

type BootstrapResult int

const (
	BootstrapSkipped BootstrapResult = iota
	BootstrapExisting
	BootstrapPromoted
	BootstrapCreated
)

func (b BootstrapResult) String() string {
	switch b {
	case BootstrapExisting:
		return "existing"
	case BootstrapPromoted:
		return "promoted"
	case BootstrapCreated:
		return "created"
	default:
		return "skipped"
	}
}

// EnsureSuperAdmin guarantees a SUPER_ADMIN exists. It does nothing when one already
// does, promotes email when that account exists, and otherwise creates it. With no email
// configured and no SUPER_ADMIN present it reports BootstrapSkipped.
func (s *UserService) EnsureSuperAdmin(ctx context.Context, email, pw string) (BootstrapResult, error) {
	l := logging.FromContext(ctx).With("svc", "users.bootstrap")

	n, err := s.Repo.CountUsersByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return BootstrapSkipped, wrapErr(ErrUnavailable, "cannot count super admins", err)
	}
	if n > 0 {
		return BootstrapExisting, nil
	}

	email = repo.NormalizeEmail(email)
	if email == "" {
		l.Warn("no_super_admin", "reason", "BOOTSTRAP_ADMIN_EMAIL not set")
		return BootstrapSkipped, nil
	}
	if err := validateEmail(email); err != nil {
		return BootstrapSkipped, err
	}

	existing, err := s.Repo.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err := s.Repo.UpdateUserRole(ctx, existing.ID, domain.RoleSuperAdmin); err != nil {
			return BootstrapSkipped, wrapErr(ErrUnavailable, "cannot promote user", err)
		}
		s.publish(ctx, events.New(events.UserRoleChanged, subject(existing.ID), 0, map[string]any{"role": domain.RoleSuperAdmin}))
		l.Info("super_admin_promoted", "user_id", existing.ID)
		return BootstrapPromoted, nil
	case !errors.Is(err, repo.ErrNotFound):
		return BootstrapSkipped, wrapErr(ErrUnavailable, "cannot load user", err)
	}

	if !password.IsStrong(pw) {
		return BootstrapSkipped, newErr(ErrValidation, "BOOTSTRAP_ADMIN_PASSWORD: "+msgWeakPassword)
	}
	hash, err := password.Hash(pw)
	if err != nil {
		return BootstrapSkipped, wrapErr(ErrValidation, "cannot hash bootstrap password", err)
	}
	user := &models.User{Email: email, PasswordHash: hash, Role: domain.RoleSuperAdmin}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return BootstrapSkipped, wrapErr(ErrUnavailable, "cannot create super admin", err)
	}

	s.publish(ctx, events.New(events.UserRegistered, subject(user.ID), 0, map[string]any{"email": user.Email, "role": user.Role}))
	l.Info("super_admin_created", "user_id", user.ID)
	return BootstrapCreated, nil
}

func (s *UserService) publish(ctx context.Context, ev events.Event) {
	publish(ctx, s.Events, s.Topic, ev)
}
