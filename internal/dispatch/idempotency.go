package dispatch

// idempotentOperations is the declared set of (domain, operation) pairs
// whose "already in desired state" outcome returns an exit code >=
// exitcode.IdempotentBase instead of the operation's normal success code.
var idempotentOperations = map[string]bool{
	"tasks.complete":         true,
	"tasks.archive":          true,
	"session.end":            true,
	"pipeline.stage.record":  true,
	"pipeline.release.tag":   true,
	"admin.init":             true,
}

func isIdempotent(domain, operation string) bool {
	return idempotentOperations[domain+"."+operation]
}
