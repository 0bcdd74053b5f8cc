package service

import (
	"time"
)

// GuardMetrics defines the interface for collecting pipeline metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// GuardMetrics 定义了收集防护流水线指标的接口。
// 这种抽象使应用层能够独立于具体的监控实现（例如 Prometheus）。
type GuardMetrics interface {
	// RecordInputVerdict records the threat level of a validated message and whether it was blocked.
	// RecordInputVerdict 记录已验证消息的威胁级别以及是否被拦截。
	RecordInputVerdict(level string, blocked bool)

	// RecordRateLimitDecision records one admission decision.
	// RecordRateLimitDecision 记录一次准入决策。
	RecordRateLimitDecision(scope string, allowed bool)

	// RecordOutputVerdict records the outcome of output validation (accepted, flagged, rejected).
	// RecordOutputVerdict 记录输出验证的结果。
	RecordOutputVerdict(outcome string)

	// RecordGeneration records the result and latency of a generation call.
	// RecordGeneration 记录生成调用的结果和延迟。
	RecordGeneration(result string, duration time.Duration)

	// RecordIsolationViolation records a tenant ownership mismatch.
	// RecordIsolationViolation 记录租户归属不匹配。
	RecordIsolationViolation()

	// RecordAuditFailure records a failed write to an audit sink.
	// RecordAuditFailure 记录审计写入失败。
	RecordAuditFailure(sink string)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) RecordInputVerdict(string, bool) {}
func (NoopMetrics) RecordRateLimitDecision(string, bool) {}
func (NoopMetrics) RecordOutputVerdict(string) {}
func (NoopMetrics) RecordGeneration(string, time.Duration) {}
func (NoopMetrics) RecordIsolationViolation() {}
func (NoopMetrics) RecordAuditFailure(string) {}
