// Package health serves liveness and readiness probes for the scheduler.
//
// Readiness aggregates named checks: the run ledger answers a ping, the
// watched tree exists, and the last successful cycle is recent enough.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("ledger", health.PingCheck(store))
//	checker.RegisterCheck("root", health.DirCheck(cfg.Schedule.Root))
//	health.Register(mux, checker, &cfg.Telemetry.Health, version, commit, buildTime)
package health
