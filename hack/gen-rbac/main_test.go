package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rbacv1 "k8s.io/api/rbac/v1"
)

func TestDesiredRules_FoldsCoveredRules(t *testing.T) {
	all := controllerRules("netcracker.com")
	rules := desiredRules("netcracker.com")

	require.Less(t, len(rules), len(all))
	for _, rule := range all {
		assert.True(t, anyRuleCovers(rules, rule), "rule %v is lost", rule)
	}
}

func TestPolicyRuleCovers(t *testing.T) {
	wide := rbacv1.PolicyRule{APIGroups: []string{""}, Resources: []string{"pods", "secrets"}, Verbs: []string{"get", "delete"}}

	assert.True(t, policyRuleCovers(wide, rbacv1.PolicyRule{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"delete"}}))
	assert.False(t, policyRuleCovers(wide, rbacv1.PolicyRule{APIGroups: []string{""}, Resources: []string{"pods/exec"}, Verbs: []string{"create"}}))
	assert.False(t, policyRuleCovers(wide, rbacv1.PolicyRule{APIGroups: []string{"apps"}, Resources: []string{"pods"}, Verbs: []string{"get"}}))
	assert.True(t, policyRuleCovers(rbacv1.PolicyRule{APIGroups: []string{"*"}, Resources: []string{"*"}, Verbs: []string{"*"}}, wide))
}

func TestRenderRoleYAML(t *testing.T) {
	out := renderRoleYAML(desiredRules("netcracker.com"))

	assert.True(t, strings.HasPrefix(out, header))
	assert.Contains(t, out, "kind: Role\n")
	assert.Contains(t, out, "      - rabbitmqservices/status\n")
	assert.Contains(t, out, "      - pods/exec\n")
	assert.Contains(t, out, "  - apiGroups:\n      - \"\"\n")
	assert.NotContains(t, out, "ClusterRole")
}
