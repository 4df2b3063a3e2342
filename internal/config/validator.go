package config

import "errors"

// validate aggregates every configuration problem into a single joined
// error so a caller sees every defect at once, not just the first.
func validate(c *Config) error {
	var errs []error

	if c.MaxEvents <= 0 {
		errs = append(errs, NewValidationError("max_events", "must be positive"))
	}
	if c.MaxBufferSize <= 0 {
		errs = append(errs, NewValidationError("max_buffer_size", "must be positive"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, NewValidationError("batch_size", "must be positive"))
	}
	if c.MaxModelVersions <= 0 {
		errs = append(errs, NewValidationError("max_model_versions", "must be positive"))
	}
	if c.MaxConcurrentTasks <= 0 {
		errs = append(errs, NewValidationError("max_concurrent_tasks", "must be positive"))
	}
	if c.ValidationMinPerformance < 0 || c.ValidationMinPerformance > 1 {
		errs = append(errs, NewValidationError("validation_min_performance", "must be within [0,1]"))
	}
	if c.TestDeployPassRate < 0 || c.TestDeployPassRate > 1 {
		errs = append(errs, NewValidationError("test_deploy_pass_rate", "must be within [0,1]"))
	}
	if c.PerformanceThreshold < 0 {
		errs = append(errs, NewValidationError("performance_threshold", "must be non-negative"))
	}
	if c.DataDir == "" {
		errs = append(errs, NewValidationError("data_dir", "must not be empty"))
	}
	if c.LearningInterval <= 0 {
		errs = append(errs, NewValidationError("learning_interval", "must be positive"))
	}
	if c.MonitoringInterval <= 0 {
		errs = append(errs, NewValidationError("monitoring_interval", "must be positive"))
	}
	if c.FlushInterval <= 0 {
		errs = append(errs, NewValidationError("flush_interval", "must be positive"))
	}
	if c.EscalationRules.Critical.Timeout <= 0 || c.EscalationRules.High.Timeout <= 0 || c.EscalationRules.Medium.Timeout <= 0 {
		errs = append(errs, NewValidationError("escalation_rules", "all severity timeouts must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
