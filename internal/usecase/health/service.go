package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing indicates an index that has not been created.
	CheckMissing CheckResult = "missing"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	indexes IndexChecker
	names   []string
}

// New creates a Service. indexes can be nil, in which case only the database is checked.
func New(db DBPinger, indexes IndexChecker, indexNames ...string) *Service {
	return &Service{db: db, indexes: indexes, names: indexNames}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		return Report{Status: Unhealthy, Checks: map[string]CheckResult{"database": CheckError}}
	}
	checks["database"] = CheckOK

	if s.indexes != nil {
		for _, name := range s.names {
			ok, err := s.indexes.IndexExists(ctx, name)
			switch {
			case err != nil:
				checks["index:"+name] = CheckError
			case !ok:
				checks["index:"+name] = CheckMissing
			default:
				checks["index:"+name] = CheckOK
			}
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
