package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

const defaultOutputPath = "config/rbac/role.yaml"

const header = `---
# Generated by hack/gen-rbac. Do not edit.
#
# Namespaced Role of the RabbitMQ operator. The operator watches a single
# namespace, so nothing here needs cluster scope.
`

func main() {
	output := flag.String("output", defaultOutputPath, "Path of the generated Role manifest.")
	flag.Parse()

	content := renderRoleYAML(desiredRules(rabbitmqv2.GroupVersion.Group))
	// #nosec G306 -- writes non-sensitive YAML intended to be committed to the repo.
	if err := os.WriteFile(filepath.Clean(*output), []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: write %s: %v\n", *output, err)
		os.Exit(1)
	}
}

// controllerRules lists what each workflow needs, in the order the workflows
// run. Overlaps are folded by desiredRules.
func controllerRules(apiGroup string) []rbacv1.PolicyRule {
	crud := []string{"create", "delete", "get", "list", "patch", "update", "watch"}
	return []rbacv1.PolicyRule{
		// RabbitMQService reconcile.
		{APIGroups: []string{apiGroup}, Resources: []string{"rabbitmqservices"}, Verbs: []string{"get", "list", "patch", "update", "watch"}},
		{APIGroups: []string{apiGroup}, Resources: []string{"rabbitmqservices/status"}, Verbs: []string{"get", "patch", "update"}},
		{APIGroups: []string{apiGroup}, Resources: []string{"rabbitmqservices/finalizers"}, Verbs: []string{"update"}},
		{APIGroups: []string{"apps"}, Resources: []string{"statefulsets", "deployments"}, Verbs: crud},
		{APIGroups: []string{""}, Resources: []string{"services", "configmaps", "persistentvolumeclaims"}, Verbs: crud},
		{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"delete", "get", "list", "watch"}},
		{APIGroups: []string{""}, Resources: []string{"pods/exec"}, Verbs: []string{"create"}},
		// Disaster recovery scales the broker and the backup daemon.
		{APIGroups: []string{"apps"}, Resources: []string{"statefulsets/scale", "deployments/scale"}, Verbs: []string{"get", "patch", "update"}},
		// Credential rotation and teardown.
		{APIGroups: []string{""}, Resources: []string{"secrets"}, Verbs: crud},
		// Config reload only reads what the reconcile rule already grants.
		{APIGroups: []string{""}, Resources: []string{"configmaps"}, Verbs: []string{"get", "list", "watch"}},
		{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"delete"}},
		// Manager plumbing.
		{APIGroups: []string{""}, Resources: []string{"events"}, Verbs: []string{"create", "patch"}},
		{APIGroups: []string{"coordination.k8s.io"}, Resources: []string{"leases"}, Verbs: crud},
	}
}

// desiredRules returns controllerRules with every rule that an earlier rule
// already covers removed.
func desiredRules(apiGroup string) []rbacv1.PolicyRule {
	var rules []rbacv1.PolicyRule
	for _, rule := range controllerRules(apiGroup) {
		if anyRuleCovers(rules, rule) {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

func anyRuleCovers(existing []rbacv1.PolicyRule, candidate rbacv1.PolicyRule) bool {
	for _, rule := range existing {
		if policyRuleCovers(rule, candidate) {
			return true
		}
	}
	return false
}

func policyRuleCovers(a, b rbacv1.PolicyRule) bool {
	// Only resource rules are generated; NonResourceURLs must match exactly.
	if len(a.NonResourceURLs) > 0 || len(b.NonResourceURLs) > 0 {
		return slices.Equal(a.NonResourceURLs, b.NonResourceURLs) &&
			slices.Equal(a.Verbs, b.Verbs)
	}
	return stringSetCovers(a.APIGroups, b.APIGroups) &&
		stringSetCovers(a.Resources, b.Resources) &&
		stringSetCovers(a.Verbs, b.Verbs) &&
		stringSetCovers(a.ResourceNames, b.ResourceNames)
}

func stringSetCovers(have, need []string) bool {
	if len(need) == 0 || slices.Contains(have, "*") {
		return true
	}
	for _, n := range need {
		if !slices.Contains(have, n) {
			return false
		}
	}
	return true
}

func renderRoleYAML(rules []rbacv1.PolicyRule) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("apiVersion: rbac.authorization.k8s.io/v1\n")
	b.WriteString("kind: Role\n")
	b.WriteString("metadata:\n")
	b.WriteString("  name: rabbitmq-operator\n")
	b.WriteString("  labels:\n")
	b.WriteString("    app.kubernetes.io/name: rabbitmq-operator\n")
	b.WriteString("    app.kubernetes.io/managed-by: kustomize\n")
	b.WriteString("rules:\n")

	for _, rule := range rules {
		writePolicyRule(&b, rule)
	}

	return b.String()
}

func writePolicyRule(b *strings.Builder, rule rbacv1.PolicyRule) {
	writeList(b, "  - apiGroups:\n", rule.APIGroups)
	writeList(b, "    resources:\n", rule.Resources)
	writeList(b, "    verbs:\n", rule.Verbs)
	if len(rule.ResourceNames) > 0 {
		writeList(b, "    resourceNames:\n", rule.ResourceNames)
	}
}

func writeList(b *strings.Builder, key string, values []string) {
	b.WriteString(key)
	for _, value := range values {
		b.WriteString("      - ")
		b.WriteString(yamlScalar(value))
		b.WriteString("\n")
	}
}

func yamlScalar(value string) string {
	if value == "" {
		return `""`
	}
	return value
}
