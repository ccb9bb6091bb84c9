package migration

// OutcomeKind classifies what the policy engine decided for one row.
type OutcomeKind int

const (
	// OutcomeMigrated: the existing account now carries (or, in dry-run,
	// would carry) the SSO email, via rewrite, split or merge.
	OutcomeMigrated OutcomeKind = iota
	// OutcomeRoleChangedToVisitor: no SSO email was mapped; the member was
	// demoted to Visitor with workspaces reassigned.
	OutcomeRoleChangedToVisitor
	// OutcomeSkippedAlreadyMigrated: the SSO account already holds
	// everything; nothing needed transferring.
	OutcomeSkippedAlreadyMigrated
	// OutcomeSkippedPolicyViolation: the row asked for something policy
	// forbids (demoting the owner, demoting in a no-guest org, demoting an
	// existing Visitor).
	OutcomeSkippedPolicyViolation
	// OutcomeFailed: validation or a remote call failed for this row.
	OutcomeFailed
)

// Outcome is the engine's decision for one row plus its human-readable
// rationale, written verbatim to the audit report.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// Failed reports whether the outcome counts against the run's failure total.
// Policy violations count; "already migrated" is a tolerated no-op.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeFailed || o.Kind == OutcomeSkippedPolicyViolation
}

func migrated(reason string) Outcome {
	return Outcome{Kind: OutcomeMigrated, Reason: reason}
}

func roleChanged(reason string) Outcome {
	return Outcome{Kind: OutcomeRoleChangedToVisitor, Reason: reason}
}

func skippedAlreadyMigrated(reason string) Outcome {
	return Outcome{Kind: OutcomeSkippedAlreadyMigrated, Reason: reason}
}

func policyViolation(reason string) Outcome {
	return Outcome{Kind: OutcomeSkippedPolicyViolation, Reason: reason}
}

func failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}
