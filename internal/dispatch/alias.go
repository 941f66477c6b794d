package dispatch

import "strings"

// legacyDomainAliases maps a legacy domain name to its canonical domain.
// reopen is deliberately absent here: it is a canonical tasks.reopen
// operation and must never be resolved to restore.
var legacyDomainAliases = map[string]string{
	"research":  "memory",
	"system":    "admin",
	"lifecycle": "pipeline",
	"skills":    "tools",
	"validate":  "check",
	"release":   "pipeline",
	"issues":    "tools",
	"providers": "tools",
}

// legacyOperationAliases maps a (legacy domain, legacy operation) pair to
// its canonical operation name within the resolved canonical domain.
var legacyOperationAliases = map[string]map[string]string{
	"lifecycle": {
		"stage":      "stage.record",
		"gate.pass":  "stage.gate.pass",
		"gate.fail":  "stage.gate.fail",
	},
	"skills": {
		"install":   "skill.install",
		"uninstall": "skill.uninstall",
		"enable":    "skill.enable",
		"disable":   "skill.disable",
		"configure": "skill.configure",
		"refresh":   "skill.refresh",
	},
	"issues": {
		"bug":    "issue.add.bug",
		"feature": "issue.add.feature",
		"help":   "issue.add.help",
	},
	"providers": {
		"inject": "provider.inject",
	},
}

// resolveAlias maps a possibly-legacy (domain, operation) pair to its
// canonical form. reopen is never rewritten to restore, by construction:
// there is no alias table entry for tasks.reopen.
func resolveAlias(domain, operation string) (string, string) {
	canonicalDomain := domain
	if mapped, ok := legacyDomainAliases[domain]; ok {
		canonicalDomain = mapped
	}

	canonicalOp := operation
	if ops, ok := legacyOperationAliases[domain]; ok {
		if mapped, ok := ops[operation]; ok {
			canonicalOp = mapped
		}
	}

	return canonicalDomain, strings.TrimSpace(canonicalOp)
}
