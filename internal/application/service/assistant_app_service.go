package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/domain/grounding"
	"github.com/turtacn/shieldgate/internal/domain/models"
	domainService "github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// AssistantAppService runs one customer message through the guarded assistant pipeline.
// AssistantAppService 通过受保护的助手流水线处理一条客户消息。
type AssistantAppService interface {
	ProcessMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

// AssistantConfig bounds the generation step.
type AssistantConfig struct {
	Timeout          time.Duration
	MaxTokens        int
	MaxMessageLength int
}

type assistantAppServiceImpl struct {
	securityReporter
	guard     GuardrailAppService
	generator domainService.Generator
	config    AssistantConfig
	tracer    trace.Tracer
}

// NewAssistantAppService creates a new instance of AssistantAppService. A nil generator
// makes every message fail with a 503.
func NewAssistantAppService(
	guard GuardrailAppService,
	generator domainService.Generator,
	auditService domainService.AuditService,
	metrics domainService.GuardMetrics,
	cfg AssistantConfig,
	log logger.Logger,
) AssistantAppService {
	if cfg.Timeout <= 0 || cfg.Timeout > constants.GenerationMaxTimeout {
		cfg.Timeout = constants.GenerationDefaultTimeout
	}
	if cfg.MaxTokens <= 0 || cfg.MaxTokens > constants.GenerationMaxTokens {
		cfg.MaxTokens = constants.GenerationMaxTokens
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = constants.MaxMessageLength
	}
	reporter := newSecurityReporter(auditService, metrics, log)
	reporter.logger = reporter.logger.WithComponent("assistant")
	return &assistantAppServiceImpl{
		securityReporter: reporter,
		guard:            guard,
		generator:        generator,
		config:           cfg,
		tracer:           otel.Tracer(constants.ServiceName),
	}
}

// ProcessMessage implements AssistantAppService.
//
// Steps, in order: validate input, look up verified pricing, build the system prompt,
// generate under a deadline, validate output. The generator is never called for a blocked
// message; a generation failure degrades to the apology text.
func (s *assistantAppServiceImpl) ProcessMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.ProcessMessage")
	defer span.End()

	tc, err := currentTenant(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, errors.ErrInvalidRequest("message is required")
	}
	if utf8.RuneCountInString(req.Message) > s.config.MaxMessageLength {
		return nil, errors.ErrInvalidRequest("message too long").
			WithMetadata("max_length", s.config.MaxMessageLength)
	}
	if s.generator == nil {
		return nil, errors.ErrStorageUnavailable("assistant", stderrors.New("generation service not configured"))
	}

	// 1. Input guardrails
	verdict := s.guard.ValidateInput(ctx, req.Message, tc.ID())
	span.SetAttributes(attribute.String("threat.level", verdict.ThreatLevel.String()))
	if !verdict.IsSafe {
		s.recordGuardrail(ctx, tc.ID(), verdict, nil)
		category := constants.ThreatCategoryPromptInjection
		if len(verdict.Threats) > 0 {
			category = verdict.Threats[0]
		}
		return nil, errors.ErrInputRejected(category, verdict.ThreatLevel.String())
	}

	// 2. Verified pricing
	rec, err := s.guard.FindVerifiedRecord(ctx, tc.ID(), verdict.SanitizedText)
	if err != nil {
		return nil, err
	}

	// 3. Generation
	text, err := s.generate(ctx, grounding.BuildSystemPrompt(tc.Name(), rec), verdict.SanitizedText)
	if err != nil {
		genErr := errors.ErrGenerationFailure(err)
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "generation failed")
		s.logger.Error(ctx, "Generation failed, returning apology", genErr, logger.String("tenant_id", tc.ID()))
		return &dto.ChatResponse{
			Response:    genErr.Description(),
			ThreatLevel: verdict.ThreatLevel.String(),
			Warnings:    []string{},
			Grounded:    rec != nil,
			Degraded:    true,
		}, nil
	}

	// 4. Output guardrails
	out := s.guard.ValidateOutput(ctx, text, rec)
	if len(verdict.Threats) > 0 || len(out.Warnings) > 0 {
		s.recordGuardrail(ctx, tc.ID(), verdict, out.Warnings)
	}
	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	if !out.Accepted {
		return &dto.ChatResponse{
			Response:    errors.ErrOutputRejected(strings.Join(out.Warnings, ",")).Description(),
			Blocked:     true,
			ThreatLevel: verdict.ThreatLevel.String(),
			Warnings:    warnings,
			Grounded:    rec != nil,
		}, nil
	}
	return &dto.ChatResponse{
		Response:    out.FinalText,
		ThreatLevel: verdict.ThreatLevel.String(),
		Warnings:    warnings,
		Grounded:    rec != nil,
	}, nil
}

// generate calls the generator under the configured deadline.
func (s *assistantAppServiceImpl) generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := s.generator.Generate(ctx, domainService.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserText:     userText,
		MaxTokens:    s.config.MaxTokens,
	})
	result := "success"
	switch {
	case stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		result = "timeout"
		if err == nil {
			err = ctx.Err()
		}
	case err != nil:
		result = "error"
	}
	s.metrics.RecordGeneration(result, time.Since(start))
	return text, err
}

// recordGuardrail writes the AI_GUARDRAIL_TRIGGERED event. Snapshots hold the redacted text
// only.
func (s *assistantAppServiceImpl) recordGuardrail(ctx context.Context, tenantID string, v models.GuardrailVerdict, outputWarnings []string) {
	all := append(append([]string{}, v.Threats...), outputWarnings...)
	pii := make([]string, 0, len(v.PIIDetected))
	for _, c := range v.PIIDetected {
		pii = append(pii, c.String())
	}
	severity := v.ThreatLevel.AuditSeverity()
	if severity == constants.SeverityInfo && len(outputWarnings) > 0 {
		severity = constants.SeverityWarning
	}
	event := models.NewSecurityEvent(tenantID, constants.AuditEventGuardrailTriggered, severity,
		"guardrails triggered: "+strings.Join(all, ",")).
		WithActor(constants.AssistantActor, constants.AssistantResource).
		WithTags("ai", "security", "guardrails").
		WithSnapshots(
			map[string]interface{}{"user_message": v.SanitizedText},
			map[string]interface{}{
				"threat_level":    v.ThreatLevel.String(),
				"threats":         v.Threats,
				"rule_ids":        v.Metadata.MatchedRuleIDs,
				"pii_redacted":    pii,
				"output_warnings": outputWarnings,
			},
		).
		WithSuspicious(v.ThreatLevel >= models.ThreatHigh)
	s.record(ctx, event)
}
