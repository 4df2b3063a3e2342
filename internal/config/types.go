// Package config loads, validates, and exposes the immutable runtime
// configuration for CLADC. Dynamic tuning never mutates a live *Config —
// Reconfigure builds a new immutable value and the caller swaps it in.
package config

import "time"

// Config is the umbrella, immutable configuration object returned by
// Initialize. All durations are parsed once at load time.
type Config struct {
	// Cadences
	LearningInterval           time.Duration `yaml:"learning_interval"`
	DevelopmentInterval        time.Duration `yaml:"development_interval"`
	ImprovementInterval        time.Duration `yaml:"improvement_interval"`
	ModelValidationInterval    time.Duration `yaml:"model_validation_interval"`
	DeploymentInterval         time.Duration `yaml:"deployment_interval"`
	MonitoringInterval         time.Duration `yaml:"monitoring_interval"`
	HealthCheckInterval        time.Duration `yaml:"health_check_interval"`
	ReportGenerationInterval   time.Duration `yaml:"report_generation_interval"`
	DocumentationUpdateInterval time.Duration `yaml:"documentation_update_interval"`
	FlushInterval              time.Duration `yaml:"flush_interval"`

	// Sizes
	BatchSize        int `yaml:"batch_size"`
	MaxBufferSize    int `yaml:"max_buffer_size"`
	MaxEvents        int `yaml:"max_events"`
	MaxModelVersions int `yaml:"max_model_versions"`
	MaxReportHistory int `yaml:"max_report_history"`

	// Retention
	EventRetention  time.Duration `yaml:"event_retention"`
	ReportRetention time.Duration `yaml:"report_retention"`

	// Thresholds
	PerformanceThreshold float64 `yaml:"performance_threshold"`
	ImprovementThreshold float64 `yaml:"improvement_threshold"`

	AlertThresholds  AlertThresholds  `yaml:"alert_thresholds"`
	EscalationRules  EscalationRules  `yaml:"escalation_rules"`

	// Feature flags
	AutoRecovery         bool `yaml:"auto_recovery"`
	EnableABTesting      bool `yaml:"enable_ab_testing"`
	EnableAutoDeployment bool `yaml:"enable_auto_deployment"`
	BackupBeforeUpdate   bool `yaml:"backup_before_update"`
	EnableVersionControl bool `yaml:"enable_version_control"`

	// Concurrency
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`

	// Validation thresholds for the improvement pipeline. TestDeployPassRate
	// gates the test_deploy step. ValidationMinPerformance is passed into
	// improvement.Config but the pipeline does not read it: each trigger
	// sets its own validate threshold (0.7, or 0.75 for the retraining
	// sweep).
	ValidationMinPerformance float64 `yaml:"validation_min_performance"`
	TestDeployPassRate       float64 `yaml:"test_deploy_pass_rate"`

	// Data directory layout
	DataDir      string `yaml:"data_dir"`
	ReportsDir   string `yaml:"reports_dir"`
	DocsDir      string `yaml:"docs_dir"`
	LogsDir      string `yaml:"logs_dir"`
	GeneratedDir string `yaml:"generated_dir"`

	configDir string // not user-settable; recorded for ConfigDir()
}

// AlertThresholds configures the trigger point for each monitored metric.
type AlertThresholds struct {
	CPUUsage       float64       `yaml:"cpu_usage"`
	MemoryUsage    float64       `yaml:"memory_usage"`
	ErrorRate      float64       `yaml:"error_rate"`
	ResponseTime   time.Duration `yaml:"response_time"`
	ThroughputDrop float64       `yaml:"throughput_drop"`
}

// EscalationRules configures, per severity, the timeout before an alert
// is marked escalated, plus an opaque target tag. Delivery to humans is
// out of scope for this package; EscalationRule.Target is just handed to
// whatever notifier is configured.
type EscalationRules struct {
	Critical EscalationRule `yaml:"critical"`
	High     EscalationRule `yaml:"high"`
	Medium   EscalationRule `yaml:"medium"`
}

type EscalationRule struct {
	Timeout time.Duration `yaml:"timeout"`
	Target  string        `yaml:"target"`
}

// ConfigDir returns the configuration directory path used to load this
// Config.
func (c *Config) ConfigDir() string { return c.configDir }

// Stats summarizes the loaded configuration for health/status endpoints.
type Stats struct {
	MaxEvents            int
	MaxBufferSize        int
	MaxConcurrentTasks   int
	AutoRecovery         bool
	EnableABTesting      bool
	EnableAutoDeployment bool
}

func (c *Config) Stats() Stats {
	return Stats{
		MaxEvents:            c.MaxEvents,
		MaxBufferSize:        c.MaxBufferSize,
		MaxConcurrentTasks:   c.MaxConcurrentTasks,
		AutoRecovery:         c.AutoRecovery,
		EnableABTesting:      c.EnableABTesting,
		EnableAutoDeployment: c.EnableAutoDeployment,
	}
}
