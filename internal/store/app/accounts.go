package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jcmexdev/storefront/internal/coordinator"
	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

// Accounts runs the account maintenance jobs.
type Accounts struct {
	store ports.Store
	opts  options
}

func NewAccounts(store ports.Store, opts ...Option) *Accounts {
	return &Accounts{store: store, opts: buildOptions(opts)}
}

func validateSpec(spec domain.AccountSpec) error {
	if err := domain.ValidateUser(spec.Username, spec.Email); err != nil {
		return err
	}
	if spec.Password == "" {
		return &domain.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	return nil
}

// EnsureAccount brings the account named spec.Username to the desired state
// and returns the plan it applied. Running it again yields a no-op plan.
func (a *Accounts) EnsureAccount(ctx context.Context, spec domain.AccountSpec) (domain.AccountPlan, error) {
	if err := validateSpec(spec); err != nil {
		return domain.AccountPlan{}, err
	}

	var plan domain.AccountPlan
	err := a.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		plan, err = a.ensure(ctx, spec)
		return err
	})
	if err != nil {
		return domain.AccountPlan{}, err
	}

	slog.InfoContext(ctx, "account ensured", "username", spec.Username, "action", plan.Action, "changes", plan.Changes)
	return plan, nil
}

// Plan computes what EnsureAccount would do without writing anything.
func (a *Accounts) Plan(ctx context.Context, spec domain.AccountSpec) (domain.AccountPlan, error) {
	if err := validateSpec(spec); err != nil {
		return domain.AccountPlan{}, err
	}
	current, matches, err := a.current(ctx, spec)
	if err != nil {
		return domain.AccountPlan{}, err
	}
	return domain.PlanAccount(current, spec, matches), nil
}

func (a *Accounts) current(ctx context.Context, spec domain.AccountSpec) (*domain.User, bool, error) {
	u, err := a.store.GetUserByUsername(ctx, spec.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	matches := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(spec.Password)) == nil
	return &u, matches, nil
}

func (a *Accounts) ensure(ctx context.Context, spec domain.AccountSpec) (domain.AccountPlan, error) {
	current, matches, err := a.current(ctx, spec)
	if err != nil {
		return domain.AccountPlan{}, err
	}
	plan := domain.PlanAccount(current, spec, matches)

	switch plan.Action {
	case domain.PlanCreate:
		hash, err := a.hash(spec.Password)
		if err != nil {
			return domain.AccountPlan{}, err
		}
		err = a.store.CreateUser(ctx, domain.User{
			ID:           a.opts.newID(),
			Username:     strings.TrimSpace(spec.Username),
			Email:        domain.NormalizeEmail(spec.Email),
			PasswordHash: hash,
			IsActive:     spec.IsActive,
			IsStaff:      spec.IsStaff,
			IsSuperuser:  spec.IsSuperuser,
			DateJoined:   a.opts.now(),
		})
		if err != nil {
			return domain.AccountPlan{}, err
		}
	case domain.PlanUpdate:
		u := *current
		u.Email = domain.NormalizeEmail(spec.Email)
		u.IsActive = spec.IsActive
		u.IsStaff = spec.IsStaff
		u.IsSuperuser = spec.IsSuperuser
		if plan.ResetPassword {
			if u.PasswordHash, err = a.hash(spec.Password); err != nil {
				return domain.AccountPlan{}, err
			}
		}
		if err := a.store.UpdateUser(ctx, u); err != nil {
			return domain.AccountPlan{}, err
		}
	}
	return plan, nil
}

func (a *Accounts) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), a.opts.passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

type ResetResult struct {
	DeletedUsers  int64
	DeletedOrders int64
	Plan          domain.AccountPlan
}

// Reset deletes every user other than spec.Username, with their orders and
// lines, then ensures the remaining account. It is destructive and
// separate from EnsureAccount on purpose.
func (a *Accounts) Reset(ctx context.Context, spec domain.AccountSpec) (ResetResult, error) {
	if err := validateSpec(spec); err != nil {
		return ResetResult{}, err
	}

	var res ResetResult
	job := coordinator.NewOrchestrator("reset",
		coordinator.NewStep("count_orders", func(ctx context.Context) error {
			var err error
			res.DeletedOrders, err = a.store.CountOrdersOfUsersExcept(ctx, spec.Username)
			return err
		}),
		coordinator.NewStep("delete_users", func(ctx context.Context) error {
			var err error
			res.DeletedUsers, err = a.store.DeleteUsersExcept(ctx, spec.Username)
			return err
		}),
		coordinator.NewStep("ensure_account", func(ctx context.Context) error {
			var err error
			res.Plan, err = a.ensure(ctx, spec)
			return err
		}),
	)
	if err := a.store.Transact(ctx, job.Start); err != nil {
		return ResetResult{}, err
	}

	slog.WarnContext(ctx, "users reset",
		"kept", spec.Username, "deleted_users", res.DeletedUsers, "deleted_orders", res.DeletedOrders)
	return res, nil
}

// VerifyAccount checks that the stored account matches spec, including its
// password and privilege flags.
func (a *Accounts) VerifyAccount(ctx context.Context, spec domain.AccountSpec) (domain.User, error) {
	u, err := a.store.GetUserByUsername(ctx, spec.Username)
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(spec.Password)) != nil {
		return u, &domain.ValidationError{Field: "password", Reason: "does not match"}
	}
	plan := domain.PlanAccount(&u, spec, true)
	if plan.Action != domain.PlanNoop {
		return u, &domain.ValidationError{Field: strings.Join(plan.Changes, ","), Reason: "differs from the expected account"}
	}
	return u, nil
}
