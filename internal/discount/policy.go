package discount

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Role identifies the acting user's profile role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSeller  Role = "seller"
	RoleViewer  Role = "viewer"
	RoleUnknown Role = ""
)

const (
	scopeGeneral    = "general"
	scopeIndividual = "individual"
)

// Limits is the ceiling configured for one role. A nil ceiling means unrestricted.
type Limits struct {
	CanEdit       bool
	MaxGeneral    *decimal.Decimal
	MaxIndividual *decimal.Decimal
}

// Policy is the discount capability of one actor, computed once per request and passed
// down to every consumer.
type Policy struct {
	Role          Role             `json:"role"`
	CanEdit       bool             `json:"canEdit"`
	MaxGeneral    *decimal.Decimal `json:"maxGeneral"`
	MaxIndividual *decimal.Decimal `json:"maxIndividual"`
}

// ReadOnly is the policy used whenever the actor's role is unknown or still loading.
func ReadOnly(role Role) Policy {
	zero := decimal.Zero
	return Policy{Role: role, CanEdit: false, MaxGeneral: &zero, MaxIndividual: &zero}
}

// Rejection describes why a discount value was refused.
type Rejection struct {
	Scope   string
	Value   decimal.Decimal
	Message string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return r.Message
}

// CheckGeneral validates a whole-quote discount percentage.
func (p Policy) CheckGeneral(value decimal.Decimal) error {
	return p.check(scopeGeneral, value, p.MaxGeneral)
}

// CheckIndividual validates a line-item discount percentage.
func (p Policy) CheckIndividual(value decimal.Decimal) error {
	return p.check(scopeIndividual, value, p.MaxIndividual)
}

// IsValidGeneralDiscount reports whether value is acceptable and, when it is not, why.
func (p Policy) IsValidGeneralDiscount(value decimal.Decimal) (bool, string) {
	return verdict(p.CheckGeneral(value))
}

// IsValidIndividualDiscount reports whether value is acceptable and, when it is not, why.
func (p Policy) IsValidIndividualDiscount(value decimal.Decimal) (bool, string) {
	return verdict(p.CheckIndividual(value))
}

func (p Policy) check(scope string, value decimal.Decimal, ceiling *decimal.Decimal) error {
	if !p.CanEdit {
		return &Rejection{Scope: scope, Value: value, Message: fmt.Sprintf("role %q is not allowed to edit discounts", roleLabel(p.Role))}
	}
	if value.IsNegative() {
		return &Rejection{Scope: scope, Value: value, Message: fmt.Sprintf("%s discount cannot be negative (got %s%%)", scope, value.String())}
	}
	limit := decimal.NewFromInt(100)
	if ceiling != nil && ceiling.LessThan(limit) {
		limit = *ceiling
	}
	if value.GreaterThan(limit) {
		return &Rejection{Scope: scope, Value: value, Message: fmt.Sprintf("%s discount of %s%% exceeds the maximum of %s%% allowed for role %q", scope, value.String(), limit.String(), roleLabel(p.Role))}
	}
	return nil
}

func verdict(err error) (bool, string) {
	if err == nil {
		return true, ""
	}
	return false, err.Error()
}

func roleLabel(role Role) string {
	if role == RoleUnknown {
		return "unknown"
	}
	return string(role)
}

// Table maps roles to their limits.
type Table map[Role]Limits

// DefaultTable returns the built-in limits: admins and managers are unrestricted, sellers
// are capped and viewers are read-only.
func DefaultTable() Table {
	return Table{
		RoleAdmin:   {CanEdit: true},
		RoleManager: {CanEdit: true},
		RoleSeller:  {CanEdit: true, MaxGeneral: ptr(decimal.NewFromInt(10)), MaxIndividual: ptr(decimal.NewFromInt(5))},
		RoleViewer:  {CanEdit: false},
	}
}

// ParseTable applies overrides of the form "seller=10/5,manager=*/20" on top of base.
// "*" means unrestricted and "-" marks the role read-only.
func ParseTable(base Table, overrides string) (Table, error) {
	out := make(Table, len(base))
	for role, limits := range base {
		out[role] = limits
	}
	for _, part := range strings.Split(overrides, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("discount limits: entry %q must be role=general/individual", part)
		}
		role := Role(strings.ToLower(strings.TrimSpace(name)))
		value = strings.TrimSpace(value)
		if value == "-" {
			out[role] = Limits{CanEdit: false}
			continue
		}
		general, individual, ok := strings.Cut(value, "/")
		if !ok {
			return nil, fmt.Errorf("discount limits: entry %q must be role=general/individual", part)
		}
		g, err := parseCeiling(general)
		if err != nil {
			return nil, fmt.Errorf("discount limits: role %s general: %w", role, err)
		}
		i, err := parseCeiling(individual)
		if err != nil {
			return nil, fmt.Errorf("discount limits: role %s individual: %w", role, err)
		}
		out[role] = Limits{CanEdit: true, MaxGeneral: g, MaxIndividual: i}
	}
	return out, nil
}

func parseCeiling(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "*" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("ceiling %s outside [0, 100]", raw)
	}
	return &value, nil
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// RoleSource fetches the role of a user from the profile collaborator.
type RoleSource interface {
	Role(ctx context.Context, userID string) (string, error)
}

// Resolver turns roles into policies.
type Resolver struct {
	table Table
}

// NewResolver constructs a Resolver over the provided table, falling back to DefaultTable.
func NewResolver(table Table) *Resolver {
	if len(table) == 0 {
		table = DefaultTable()
	}
	return &Resolver{table: table}
}

// Resolve returns the policy for role. Unknown roles are read-only.
func (r *Resolver) Resolve(role Role) Policy {
	role = Role(strings.ToLower(strings.TrimSpace(string(role))))
	limits, ok := r.table[role]
	if !ok || !limits.CanEdit {
		return ReadOnly(role)
	}
	return Policy{
		Role:          role,
		CanEdit:       true,
		MaxGeneral:    copyCeiling(limits.MaxGeneral),
		MaxIndividual: copyCeiling(limits.MaxIndividual),
	}
}

// ForUser fetches the user's role and resolves it. Any lookup failure yields the
// read-only policy together with the error so callers can log it.
func (r *Resolver) ForUser(ctx context.Context, source RoleSource, userID string) (Policy, error) {
	if source == nil || strings.TrimSpace(userID) == "" {
		return ReadOnly(RoleUnknown), nil
	}
	role, err := source.Role(ctx, userID)
	if err != nil {
		return ReadOnly(RoleUnknown), fmt.Errorf("resolve role: %w", err)
	}
	return r.Resolve(Role(role)), nil
}

func copyCeiling(c *decimal.Decimal) *decimal.Decimal {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
