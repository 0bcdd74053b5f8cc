package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/shieldgate/internal/domain/grounding"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/pattern"
	"github.com/turtacn/shieldgate/internal/domain/pii"
	"github.com/turtacn/shieldgate/internal/domain/repository"
	domainService "github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/internal/domain/threat"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// GuardrailAppService exposes the defense pipeline to the routing layer.
// GuardrailAppService 向路由层暴露防护流水线。
type GuardrailAppService interface {
	// ValidateInput classifies text, redacts its PII and returns the consolidated verdict.
	ValidateInput(ctx context.Context, text, tenantID string) models.GuardrailVerdict

	// CheckRateLimit admits or rejects one request of identifier ("tenant:<id>" or "ip:<addr>").
	CheckRateLimit(ctx context.Context, identifier string) (bool, error)

	// Admit is CheckRateLimit with the full decision, for callers that set rate headers.
	Admit(ctx context.Context, scope constants.RateLimitScope, id string) (*models.RateDecision, error)

	// ValidateOutput checks generated text against rec before it is released.
	ValidateOutput(ctx context.Context, text string, rec *models.FinancialRecord) models.OutputVerdict

	// FindVerifiedRecord returns the tenant's verified pricing for text when it asks about
	// prices, or nil.
	FindVerifiedRecord(ctx context.Context, tenantID, text string) (*models.FinancialRecord, error)

	// ScreenParameter rejects a request parameter that matches the SQL-injection rules.
	ScreenParameter(ctx context.Context, name, value string) error
}

type guardrailAppServiceImpl struct {
	securityReporter
	catalog          *pattern.Catalog
	classifier       *threat.Classifier
	redactor         *pii.Redactor
	validator        *grounding.Validator
	limiter          domainService.RateLimiter
	financialRepo    repository.FinancialRepository
	screenParameters bool
	tracer           trace.Tracer
}

// GuardrailOption configures the guardrail service.
type GuardrailOption func(*guardrailAppServiceImpl)

// WithParameterScreening toggles SQL screening of request parameters. It is on by default.
func WithParameterScreening(enabled bool) GuardrailOption {
	return func(s *guardrailAppServiceImpl) { s.screenParameters = enabled }
}

// WithTracer sets the tracer used for pipeline spans.
func WithTracer(tracer trace.Tracer) GuardrailOption {
	return func(s *guardrailAppServiceImpl) { s.tracer = tracer }
}

// NewGuardrailAppService creates a new instance of GuardrailAppService. catalog and redactor
// are built once at startup and shared.
func NewGuardrailAppService(
	catalog *pattern.Catalog,
	redactor *pii.Redactor,
	limiter domainService.RateLimiter,
	financialRepo repository.FinancialRepository,
	auditService domainService.AuditService,
	metrics domainService.GuardMetrics,
	log logger.Logger,
	opts ...GuardrailOption,
) GuardrailAppService {
	reporter := newSecurityReporter(auditService, metrics, log)
	reporter.logger = reporter.logger.WithComponent("guardrails")
	s := &guardrailAppServiceImpl{
		securityReporter: reporter,
		catalog:          catalog,
		classifier:       threat.NewClassifier(catalog),
		redactor:         redactor,
		validator:        grounding.NewValidator(catalog, redactor),
		limiter:          limiter,
		financialRepo:    financialRepo,
		screenParameters: true,
		tracer:           otel.Tracer(constants.ServiceName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateInput implements GuardrailAppService.
//
// A message is safe to forward unless it reaches HIGH. Prompt-injection categories are
// reported from MEDIUM, PII as pii_detected. SQL rule hits in free text are diagnostic only.
func (s *guardrailAppServiceImpl) ValidateInput(ctx context.Context, text, tenantID string) models.GuardrailVerdict {
	_, span := s.tracer.Start(ctx, "guardrails.ValidateInput")
	defer span.End()

	assessment := s.classifier.Classify(text)
	redacted := s.redactor.Redact(text)

	threats := make([]string, 0, 2)
	if assessment.IsMalicious {
		threats = append(threats, s.classifier.Categories(assessment)...)
	}
	if redacted.Found() {
		threats = append(threats, constants.ThreatCategoryPIIDetected)
	}

	verdict := models.GuardrailVerdict{
		IsSafe:        !assessment.Level.Blocks(),
		ThreatLevel:   assessment.Level,
		Threats:       threats,
		SanitizedText: redacted.Text,
		PIIDetected:   redacted.Categories,
		Metadata: models.VerdictMetadata{
			OriginalLength:  utf8.RuneCountInString(text),
			SanitizedLength: utf8.RuneCountInString(redacted.Text),
			MatchedRuleIDs:  assessment.MatchedRuleIDs,
			SQLRuleIDs:      pattern.MatchesAny(text, s.catalog.SQLInjection()),
			CatalogVersion:  s.catalog.Version(),
		},
	}

	s.metrics.RecordInputVerdict(verdict.ThreatLevel.String(), !verdict.IsSafe)
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("threat.level", verdict.ThreatLevel.String()),
		attribute.Bool("threat.safe", verdict.IsSafe),
		attribute.Int("pii.categories", len(verdict.PIIDetected)),
	)
	if assessment.IsMalicious || redacted.Found() {
		s.logger.Warn(ctx, "Input guardrails triggered",
			logger.String("tenant_id", tenantID),
			logger.String("threat_level", verdict.ThreatLevel.String()),
			logger.Strings("rule_ids", assessment.MatchedRuleIDs),
			logger.Strings("threats", threats),
			logger.Int("original_length", verdict.Metadata.OriginalLength),
		)
	}
	return verdict
}

// CheckRateLimit implements GuardrailAppService.
func (s *guardrailAppServiceImpl) CheckRateLimit(ctx context.Context, identifier string) (bool, error) {
	prefix, id, ok := strings.Cut(identifier, ":")
	if !ok || id == "" {
		return false, errors.ErrInvalidRequest("rate limit identifier must be tenant:<id> or ip:<addr>")
	}
	scope := constants.RateLimitScope(prefix)
	if scope != constants.RateLimitScopeTenant && scope != constants.RateLimitScopeIP {
		return false, errors.ErrInvalidRequest("unknown rate limit scope " + prefix)
	}
	decision, err := s.Admit(ctx, scope, id)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// Admit implements GuardrailAppService.
func (s *guardrailAppServiceImpl) Admit(ctx context.Context, scope constants.RateLimitScope, id string) (*models.RateDecision, error) {
	decision, err := s.limiter.Check(ctx, scope, id)
	if err != nil {
		s.logger.Error(ctx, "Rate limit check failed", err, logger.String("scope", string(scope)))
		return nil, err
	}
	if !decision.Allowed && scope == constants.RateLimitScopeTenant {
		s.logger.Warn(ctx, "Tenant rate limit exceeded", logger.String("tenant_id", id))
		event := models.NewSecurityEvent(id, constants.AuditEventRateLimited, constants.SeverityWarning,
			"request rejected by tenant rate limit").
			WithActor("system", "rate_limiter").
			WithTags("security", "rate_limit")
		s.record(ctx, event)
	}
	return decision, nil
}

// ValidateOutput implements GuardrailAppService.
func (s *guardrailAppServiceImpl) ValidateOutput(ctx context.Context, text string, rec *models.FinancialRecord) models.OutputVerdict {
	_, span := s.tracer.Start(ctx, "guardrails.ValidateOutput")
	defer span.End()

	verdict := s.validator.ValidateOutput(text, rec)
	tenantID, _ := tenancy.ValidatedTenantID(ctx)

	outcome := "accepted"
	switch {
	case !verdict.Accepted:
		outcome = "rejected"
		s.logger.Error(ctx, "Generated output rejected", nil,
			logger.String("tenant_id", tenantID),
			logger.Strings("warnings", verdict.Warnings),
		)
		event := models.NewSecurityEvent(tenantID, constants.AuditEventOutputRejected, constants.SeverityCritical,
			"generated output discarded: "+strings.Join(verdict.Warnings, ",")).
			WithActor(constants.AssistantActor, constants.AssistantResource).
			WithTags("ai", "security", "guardrails").
			WithSnapshots(nil, map[string]interface{}{"output_warnings": verdict.Warnings}).
			WithSuspicious(true)
		s.record(ctx, event)
	case len(verdict.Warnings) > 0:
		outcome = "flagged"
		s.logger.Warn(ctx, "Generated output altered before release",
			logger.String("tenant_id", tenantID),
			logger.Strings("warnings", verdict.Warnings),
			logger.Bool("grounded", rec != nil),
		)
		event := models.NewSecurityEvent(tenantID, constants.AuditEventOutputFlagged, constants.SeverityWarning,
			"generated output altered: "+strings.Join(verdict.Warnings, ",")).
			WithActor(constants.AssistantActor, constants.AssistantResource).
			WithTags("ai", "security", "guardrails").
			WithSnapshots(nil, map[string]interface{}{"output_warnings": verdict.Warnings})
		s.record(ctx, event)
	}

	s.metrics.RecordOutputVerdict(outcome)
	span.SetAttributes(
		attribute.String("output.outcome", outcome),
		attribute.Bool("output.grounded", rec != nil),
	)
	return verdict
}

// FindVerifiedRecord implements GuardrailAppService. Storage outages degrade to no record so
// the assistant defers pricing to a human agent; isolation violations fail the request.
func (s *guardrailAppServiceImpl) FindVerifiedRecord(ctx context.Context, tenantID, text string) (*models.FinancialRecord, error) {
	if s.financialRepo == nil || !s.validator.HasFinancialIntent(text) {
		return nil, nil
	}
	ctx, span := s.tracer.Start(ctx, "guardrails.FindVerifiedRecord")
	defer span.End()

	terms := s.validator.SearchTerms(text)
	rec, err := s.financialRepo.FindAvailableProduct(ctx, tenantID, terms)
	if err == nil {
		err = tenancy.AssertOwned(ctx, rec)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "financial lookup failed")
		if errors.IsIsolationViolation(err) {
			return nil, s.isolationViolation(ctx, "products", err)
		}
		s.logger.Warn(ctx, "Financial lookup failed, continuing without verified pricing",
			logger.String("tenant_id", tenantID),
			logger.String("error", err.Error()),
		)
		return nil, nil
	}
	span.SetAttributes(attribute.Bool("financial.found", rec != nil))
	return rec, nil
}

// ScreenParameter implements GuardrailAppService. Matching values are rejected outright;
// nothing is stripped.
func (s *guardrailAppServiceImpl) ScreenParameter(ctx context.Context, name, value string) error {
	if !s.screenParameters || value == "" {
		return nil
	}
	ids := pattern.MatchesAny(value, s.catalog.SQLInjection())
	if len(ids) == 0 {
		return nil
	}
	level := threat.Level(len(ids), threat.Signals{})
	tenantID, _ := tenancy.ValidatedTenantID(ctx)

	s.logger.Warn(ctx, "Request parameter rejected by SQL screening",
		logger.String("tenant_id", tenantID),
		logger.String("parameter", name),
		logger.Strings("rule_ids", ids),
	)
	event := models.NewSecurityEvent(tenantID, constants.AuditEventInputRejected, level.AuditSeverity(),
		"parameter "+name+" rejected by SQL screening").
		WithActor("system", name).
		WithTags("security", "sql_injection").
		WithSnapshots(nil, map[string]interface{}{"rule_ids": ids, "length": utf8.RuneCountInString(value)}).
		WithSuspicious(level.Blocks())
	s.record(ctx, event)

	return errors.ErrInputRejected(constants.ThreatCategorySQLInjection, level.String())
}
