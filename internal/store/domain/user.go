package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	DateJoined   time.Time
}

func ValidateUser(username, email string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username", "must not be empty")
	}
	if strings.TrimSpace(email) == "" {
		return invalid("email", "must not be empty")
	}
	if !strings.Contains(email, "@") {
		return invalid("email", "must contain @")
	}
	return nil
}

// NormalizeEmail lower-cases the domain part and leaves the local part alone.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// AccountSpec is the desired state of a privileged account.
type AccountSpec struct {
	Username    string
	Email       string
	Password    string
	IsStaff     bool
	IsSuperuser bool
	IsActive    bool
}

type PlanAction string

const (
	PlanCreate PlanAction = "create"
	PlanUpdate PlanAction = "update"
	PlanNoop   PlanAction = "noop"
)

// AccountPlan is the difference between the stored account and its spec.
type AccountPlan struct {
	Action          PlanAction
	Changes         []string
	ResetPassword   bool
	ExistingUserID  string
	DesiredUsername string
}

// PlanAccount compares current (nil when absent) against spec.
// passwordMatches reports whether the stored hash already verifies spec.Password.
func PlanAccount(current *User, spec AccountSpec, passwordMatches bool) AccountPlan {
	if current == nil {
		return AccountPlan{
			Action:          PlanCreate,
			ResetPassword:   true,
			DesiredUsername: spec.Username,
		}
	}

	plan := AccountPlan{
		ExistingUserID:  current.ID,
		DesiredUsername: spec.Username,
	}
	if current.Email != NormalizeEmail(spec.Email) {
		plan.Changes = append(plan.Changes, "email")
	}
	if current.IsStaff != spec.IsStaff {
		plan.Changes = append(plan.Changes, "is_staff")
	}
	if current.IsSuperuser != spec.IsSuperuser {
		plan.Changes = append(plan.Changes, "is_superuser")
	}
	if current.IsActive != spec.IsActive {
		plan.Changes = append(plan.Changes, "is_active")
	}
	if !passwordMatches {
		plan.ResetPassword = true
		plan.Changes = append(plan.Changes, "password")
	}

	plan.Action = PlanNoop
	if len(plan.Changes) > 0 {
		plan.Action = PlanUpdate
	}
	return plan
}
