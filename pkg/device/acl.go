// Package device manages per-device pairing state for HotSync: the
// user-id allow/deny access list gating which devices may sync, and the
// persisted palm-id.json identity record for a device directory
// (: "Persisted state layout").
package device

import (
	"fmt"
	"strconv"
	"strings"
)

// ACLAction is whether a rule set permits or denies matching ids.
type ACLAction int

const (
	ACLPermit ACLAction = iota
	ACLDeny
)

func (a ACLAction) String() string {
	switch a {
	case ACLPermit:
		return "PERMIT"
	case ACLDeny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

// RuleType distinguishes the three rule shapes an ACL entry can take.
type RuleType int

const (
	RuleTypeAll RuleType = iota
	RuleTypeSingle
	RuleTypeRange
)

// ACLRule is one matcher in an ACL's rule list.
type ACLRule struct {
	Type  RuleType
	ID    uint32
	Start uint32
	End   uint32
}

func (r ACLRule) String() string {
	switch r.Type {
	case RuleTypeAll:
		return "ALL"
	case RuleTypeSingle:
		return fmt.Sprintf("%d", r.ID)
	case RuleTypeRange:
		return fmt.Sprintf("%d-%d", r.Start, r.End)
	default:
		return "UNKNOWN"
	}
}

// Matches reports whether userID satisfies this rule.
func (r ACLRule) Matches(userID uint32) bool {
	switch r.Type {
	case RuleTypeAll:
		return true
	case RuleTypeSingle:
		return r.ID == userID
	case RuleTypeRange:
		return userID >= r.Start && userID <= r.End
	default:
		return false
	}
}

// ACL gates device pairing by the device's 32-bit user id (the id
// WriteUserInfo assigns on first sync).
type ACL struct {
	Action ACLAction
	Rules  []ACLRule
}

func (a *ACL) String() string {
	rules := make([]string, 0, len(a.Rules))
	for _, rule := range a.Rules {
		rules = append(rules, rule.String())
	}
	return fmt.Sprintf("%s:%s", a.Action, strings.Join(rules, ","))
}

// Check reports whether userID is allowed to sync under this ACL.
func (a *ACL) Check(userID uint32) bool {
	matches := false
	for _, rule := range a.Rules {
		if rule.Matches(userID) {
			matches = true
			break
		}
	}
	if a.Action == ACLPermit {
		return matches
	}
	return !matches
}

// ParseACL parses an ACL string in the format "ACTION:RULE[,RULE]...",
// e.g. "PERMIT:ALL", "DENY:1", "PERMIT:1000-1999,4500".
func ParseACL(rule string) (*ACL, error) {
	if rule == "" {
		return nil, fmt.Errorf("empty ACL rule")
	}

	parts := strings.SplitN(rule, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid ACL format: missing colon")
	}

	var action ACLAction
	switch strings.ToUpper(parts[0]) {
	case "PERMIT":
		action = ACLPermit
	case "DENY":
		action = ACLDeny
	default:
		return nil, fmt.Errorf("invalid ACL action: %s", parts[0])
	}

	acl := &ACL{Action: action}

	for _, ruleStr := range strings.Split(parts[1], ",") {
		ruleStr = strings.TrimSpace(ruleStr)
		if ruleStr == "" {
			continue
		}

		if strings.ToUpper(ruleStr) == "ALL" {
			acl.Rules = append(acl.Rules, ACLRule{Type: RuleTypeAll})
			continue
		}

		if strings.Contains(ruleStr, "-") {
			rangeParts := strings.SplitN(ruleStr, "-", 2)
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range format: %s", ruleStr)
			}
			start, err := strconv.ParseUint(strings.TrimSpace(rangeParts[0]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid range start: %s", rangeParts[0])
			}
			end, err := strconv.ParseUint(strings.TrimSpace(rangeParts[1]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid range end: %s", rangeParts[1])
			}
			if start > end {
				return nil, fmt.Errorf("invalid range: start (%d) > end (%d)", start, end)
			}
			acl.Rules = append(acl.Rules, ACLRule{Type: RuleTypeRange, Start: uint32(start), End: uint32(end)})
			continue
		}

		id, err := strconv.ParseUint(ruleStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid user id: %s", ruleStr)
		}
		acl.Rules = append(acl.Rules, ACLRule{Type: RuleTypeSingle, ID: uint32(id)})
	}

	if len(acl.Rules) == 0 {
		return nil, fmt.Errorf("no rules specified")
	}
	return acl, nil
}
