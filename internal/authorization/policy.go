// internal/authorization/policy.go
package authorization

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"gopkg.in/yaml.v3"
)

//go:embed model.conf
var modelText string

//go:embed policy.yaml
var policyYAML []byte

const (
	ObjectCode         = "code"
	ObjectSubscription = "subscription"
	ObjectRedemption   = "redemption"
	ObjectDashboard    = "dashboard"
	ObjectReport       = "report"
	ObjectPlan         = "plan"
	ObjectVendor       = "vendor"
	ObjectUser         = "user"
)

const (
	ActionCodeIssue          = "code.issue"
	ActionCodeRedeem         = "code.redeem"
	ActionSubscriptionManage = "subscription.manage"
	ActionRedemptionList     = "redemption.list"
	ActionDashboardView      = "dashboard.view"
	ActionReportViewOwn      = "report.view_own"
	ActionReportViewAll      = "report.view_all"
	ActionPlanManage         = "plan.manage"
	ActionVendorManage       = "vendor.manage"
	ActionUserPromote        = "user.promote"
)

type policyFile struct {
	Roles map[string]map[string][]string `yaml:"roles"`
}

// Policy answers whether a role may perform an action on an object.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewPolicy builds the enforcer from the embedded model and role grants.
func NewPolicy() (*Policy, error) {
	return newPolicy(policyYAML)
}

func newPolicy(grants []byte) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorization model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(grants, &file); err != nil {
		return nil, fmt.Errorf("failed to parse role grants: %w", err)
	}

	rules := make([][]string, 0)
	for role, objects := range file.Roles {
		for object, actions := range objects {
			for _, action := range actions {
				rules = append(rules, []string{role, object, action})
			}
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("failed to load role grants: %w", err)
		}
	}

	return &Policy{enforcer: enforcer}, nil
}

// Can reports whether role may perform action on object. Unknown roles are denied.
func (p *Policy) Can(role, object, action string) bool {
	if role == "" || object == "" || action == "" {
		return false
	}
	allowed, err := p.enforcer.Enforce(role, object, action)
	return err == nil && allowed
}
