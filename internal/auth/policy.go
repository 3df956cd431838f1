package auth

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	apperrors "github.com/spec-kit/user-api/pkg/util"
)

// Requirement states what a route needs before its handler runs.
type Requirement string

const (
	RequirementPublic        Requirement = "public"
	RequirementAuthenticated Requirement = "authenticated"
)

// Rule binds a route pattern to a requirement.
//
// Patterns: "/x/**" matches /x and everything below it, "/x/*" matches exactly
// one segment below /x, "/**" matches every path, anything else matches exactly.
type Rule struct {
	Pattern     string      `yaml:"pattern"`
	Requirement Requirement `yaml:"requirement"`
}

// Policy is an ordered, immutable rule list evaluated first-match-wins.
// Declare more specific patterns first.
type Policy struct {
	rules []Rule
}

type policyFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is the reference policy.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/auth/**", Requirement: RequirementPublic},
		{Pattern: "/health/**", Requirement: RequirementPublic},
		{Pattern: "/api/**", Requirement: RequirementAuthenticated},
		{Pattern: "/**", Requirement: RequirementAuthenticated},
	}
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(DefaultRules()...)
	return p
}

// NewPolicy validates and copies rules.
func NewPolicy(rules ...Rule) (*Policy, error) {
	copied := make([]Rule, len(rules))
	for i, rule := range rules {
		if !strings.HasPrefix(rule.Pattern, "/") {
			return nil, fmt.Errorf("rule %d: pattern %q must start with /", i, rule.Pattern)
		}
		switch rule.Requirement {
		case RequirementPublic, RequirementAuthenticated:
		default:
			return nil, fmt.Errorf("rule %d: unknown requirement %q", i, rule.Requirement)
		}
		copied[i] = rule
	}
	return &Policy{rules: copied}, nil
}

// LoadPolicyFile reads rules from a YAML document of the form {rules: [{pattern, requirement}]}.
func LoadPolicyFile(file string) (*Policy, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var doc policyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("policy file %s declares no rules", file)
	}
	return NewPolicy(doc.Rules...)
}

// Rules returns a copy of the rule list.
func (p *Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Resolve returns the requirement of the first matching rule; unmatched paths require authentication.
func (p *Policy) Resolve(requestPath string) Requirement {
	cleaned := path.Clean("/" + requestPath)
	for _, rule := range p.rules {
		if matchPattern(rule.Pattern, cleaned) {
			return rule.Requirement
		}
	}
	return RequirementAuthenticated
}

// Enforce rejects requests to authenticated routes that carry no principal.
func (p *Policy) Enforce() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p.Resolve(c.Path()) == RequirementPublic {
			return c.Next()
		}
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required", ErrAuthorizationDenied)
		}
		return c.Next()
	}
}

func matchPattern(pattern, requestPath string) bool {
	switch {
	case pattern == "/**":
		return true
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/")
	case strings.HasSuffix(pattern, "/*"):
		prefix := strings.TrimSuffix(pattern, "/*")
		rest, ok := strings.CutPrefix(requestPath, prefix+"/")
		return ok && rest != "" && !strings.Contains(rest, "/")
	default:
		return requestPath == pattern
	}
}
