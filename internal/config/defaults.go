package config

import "time"

// defaults returns the built-in configuration values. Initialize decodes
// the user's YAML file on top of these, so keys the file omits keep
// their default values.
func defaults() *Config {
	return &Config{
		LearningInterval:            300 * time.Second,
		DevelopmentInterval:         600 * time.Second,
		ImprovementInterval:         900 * time.Second,
		ModelValidationInterval:     1800 * time.Second,
		DeploymentInterval:          3600 * time.Second,
		MonitoringInterval:          60 * time.Second,
		HealthCheckInterval:         300 * time.Second,
		ReportGenerationInterval:    3600 * time.Second,
		DocumentationUpdateInterval: 7200 * time.Second,
		FlushInterval:               30 * time.Second,

		BatchSize:        100,
		MaxBufferSize:    10_000,
		MaxEvents:        50_000,
		MaxModelVersions: 10,
		MaxReportHistory: 1000,

		EventRetention:  7 * 24 * time.Hour,
		ReportRetention: 30 * 24 * time.Hour,

		PerformanceThreshold: 0.05,
		ImprovementThreshold: 0.05,

		AlertThresholds: AlertThresholds{
			CPUUsage:       80,
			MemoryUsage:    0.85, // fraction (0-1), matches monitoring.SystemMetrics.HeapFraction
			ErrorRate:      5,
			ResponseTime:   2000 * time.Millisecond,
			ThroughputDrop: 20,
		},
		EscalationRules: EscalationRules{
			Critical: EscalationRule{Timeout: 5 * time.Minute, Target: "admin"},
			High:     EscalationRule{Timeout: 15 * time.Minute, Target: "team"},
			Medium:   EscalationRule{Timeout: 30 * time.Minute, Target: "monitoring"},
		},

		AutoRecovery:         true,
		EnableABTesting:      true,
		EnableAutoDeployment: true,
		BackupBeforeUpdate:   true,
		EnableVersionControl: true,

		MaxConcurrentTasks: 3,

		ValidationMinPerformance: 0.7,
		TestDeployPassRate:       0.9,

		DataDir:      "data",
		ReportsDir:   "reports",
		DocsDir:      "docs",
		LogsDir:      "logs",
		GeneratedDir: "generated",
	}
}
