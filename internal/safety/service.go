// Package safety implements the hybrid medication safety check: rule and
// interaction data reconciled with a model verdict, escalated by patient
// history, in the requester's language.
package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/ai"
	"github.com/mamasafe/go-mamasafe/internal/cache"
	"github.com/mamasafe/go-mamasafe/internal/drugs"
	"github.com/mamasafe/go-mamasafe/internal/emr"
	"github.com/mamasafe/go-mamasafe/internal/language"
	"github.com/mamasafe/go-mamasafe/internal/risk"
	"github.com/mamasafe/go-mamasafe/internal/riskscore"
)

// Normalizer maps drug names to generic names
type Normalizer interface {
	Normalize(name string) string
}

// Translator converts text between English and supported languages
type Translator interface {
	Detect(ctx context.Context, text string) string
	ToEnglish(ctx context.Context, text, lang string) string
	FromEnglish(ctx context.Context, text, lang string) string
}

// EMR is the subset of the EMR client the pipeline uses
type EMR interface {
	GetPatient(ctx context.Context, id int) (*emr.Patient, error)
	CreateAIRecord(ctx context.Context, patientID int, prompt string) (*emr.AIRecord, error)
	GetInteractions(ctx context.Context, patientID int) ([]emr.Interaction, error)
}

// Profiler builds patient risk profiles
type Profiler interface {
	PatientRiskProfile(ctx context.Context, patientID int) riskscore.Profile
}

// Recorder receives check outcomes for metrics
type Recorder interface {
	ObserveCheck(category, analysis string, d time.Duration)
	ObserveFallback(reason string)
}

// Fallback reasons reported to the Recorder
const (
	FallbackNoPatient        = "no_patient"
	FallbackEncounterFailed  = "encounter_failed"
	FallbackNoInteractions   = "no_interactions"
	FallbackModelUnavailable = "model_unavailable"
	FallbackPipelineError    = "pipeline_error"
)

// Options wires a Service. Normalizer and Cache default when nil; any other
// nil collaborator disables the step that uses it.
type Options struct {
	Normalizer Normalizer
	Translator Translator
	EMR        EMR
	Generator  ai.Generator
	Profiler   Profiler
	Cache      *cache.Tiered
	Recorder   Recorder
	Logger     *zap.Logger
	Now        func() time.Time
}

// Service runs medication safety checks
type Service struct {
	normalizer Normalizer
	translator Translator
	emr        EMR
	gen        ai.Generator
	profiler   Profiler
	cache      *cache.Tiered
	recorder   Recorder
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewService creates a safety service
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = drugs.NewNormalizer()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil, opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		normalizer: opts.Normalizer,
		translator: opts.Translator,
		emr:        opts.EMR,
		gen:        opts.Generator,
		profiler:   opts.Profiler,
		cache:      opts.Cache,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		tracer:     otel.Tracer("safety"),
		now:        opts.Now,
	}
}

// Normalize exposes the drug normalizer
func (s *Service) Normalize(name string) string {
	return s.normalizer.Normalize(name)
}

// CheckMedication evaluates one check. Upstream failures degrade to the rule
// table; an unexpected fault yields the Error category.
func (s *Service) CheckMedication(ctx context.Context, in CheckInput) (result risk.Assessment) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "CheckMedication", trace.WithAttributes(
		attribute.Int("gestational_week", in.GestationalWeek),
		attribute.Int("additional_drugs", len(in.AdditionalDrugs)),
		attribute.Bool("has_patient", in.PatientID > 0),
	))
	defer span.End()

	analysis := risk.SingleDrug
	if len(in.AdditionalDrugs) > 0 {
		analysis = risk.MultiDrug
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("medication check failed", zap.String("drug", in.DrugName), zap.Any("panic", r))
			span.RecordError(fmt.Errorf("medication check panic: %v", r))
			s.fallback(FallbackPipelineError)
			result = risk.Failed(in.DrugName, analysis)
		}
		span.SetAttributes(attribute.String("risk_category", result.Category.String()))
		if s.recorder != nil {
			s.recorder.ObserveCheck(result.Category.String(), string(result.AnalysisType), s.now().Sub(start))
		}
	}()

	lang := s.requestLanguage(ctx, in)
	drug, symptoms, additional := in.DrugName, in.Symptoms, in.AdditionalDrugs
	if lang != language.English {
		drug = s.translator.ToEnglish(ctx, drug, lang)
		symptoms = s.translateAll(ctx, symptoms, lang, s.translator.ToEnglish)
		additional = s.translateAll(ctx, additional, lang, s.translator.ToEnglish)
	}

	name := s.normalizer.Normalize(drug)
	others := make([]string, 0, len(additional))
	for _, d := range additional {
		if n := s.normalizer.Normalize(d); strings.TrimSpace(n) != "" {
			others = append(others, n)
		}
	}

	var base risk.Assessment
	var verdict AIResult
	if len(others) > 0 {
		base, verdict = s.analyzeMulti(ctx, name, others, in.GestationalWeek, symptoms, in.PatientID)
	} else {
		base, verdict = s.analyzeSingle(ctx, name, in.GestationalWeek, symptoms)
	}
	if !verdict.Available() {
		s.logger.Debug("model verdict unavailable", zap.String("drug", name), zap.String("reason", verdict.Reason))
		s.fallback(FallbackModelUnavailable)
	}
	result = Combine(base, verdict)

	if in.PatientID > 0 && s.profiler != nil {
		profile := s.profiler.PatientRiskProfile(ctx, in.PatientID)
		result = riskscore.CalculateMedicationRisk(result, profile, in.GestationalWeek)
	}

	if lang != language.English {
		result.Message = s.translator.FromEnglish(ctx, result.Message, lang)
		result.Alternatives = s.translateAll(ctx, result.Alternatives, lang, s.translator.FromEnglish)
		if result.PersonalizedNotes != "" {
			result.PersonalizedNotes = s.translator.FromEnglish(ctx, result.PersonalizedNotes, lang)
		}
	}
	return result
}

func (s *Service) analyzeSingle(ctx context.Context, name string, week int, symptoms []string) (risk.Assessment, AIResult) {
	base := DefaultAssessment(name)

	// Symptoms change the prompt, so only symptom-free verdicts are cached.
	cacheable := len(symptoms) == 0
	if cacheable {
		var cached Verdict
		if s.cache.DrugSafety(ctx, name, week, &cached) {
			return base, AIResult{Status: AIVerdict, Verdict: cached}
		}
	}

	verdict := s.generate(ctx, singleDrugPrompt(name, week, symptoms))
	if verdict.Available() && cacheable {
		s.cache.SetDrugSafety(ctx, name, week, verdict.Verdict)
	}
	return base, verdict
}

func (s *Service) analyzeMulti(ctx context.Context, name string, others []string, week int, symptoms []string, patientID int) (risk.Assessment, AIResult) {
	all := append([]string{name}, others...)
	base := s.interactionBase(ctx, name, others, all, week, symptoms, patientID)
	return base, s.generate(ctx, multiDrugPrompt(all, week, symptoms))
}

// interactionBase returns the interaction verdict for the patient, or the
// rule table verdict for name when no interaction data can be had.
func (s *Service) interactionBase(ctx context.Context, name string, others, all []string, week int, symptoms []string, patientID int) risk.Assessment {
	floor := DefaultAssessment(name)
	floor.AnalysisType = risk.MultiDrug
	floor.AdditionalDrugs = others

	if patientID <= 0 || s.emr == nil {
		s.fallback(FallbackNoPatient)
		return floor
	}
	if _, err := s.emr.CreateAIRecord(ctx, patientID, encounterPrompt(all, week, symptoms)); err != nil {
		s.fallback(FallbackEncounterFailed)
		return floor
	}
	interactions, err := s.emr.GetInteractions(ctx, patientID)
	if err != nil || len(interactions) == 0 {
		s.fallback(FallbackNoInteractions)
		return floor
	}
	return InteractionAssessment(name, others, interactions)
}

func (s *Service) generate(ctx context.Context, prompt string) AIResult {
	if s.gen == nil {
		return Unavailable(ai.ErrNotConfigured.Error())
	}
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return Unavailable(err.Error())
	}
	return DecodeVerdict(text)
}

func (s *Service) requestLanguage(ctx context.Context, in CheckInput) string {
	lang := language.Normalize(in.Language)
	if s.translator == nil {
		return language.English
	}
	if lang == language.Auto {
		sample := strings.TrimSpace(in.DrugName + " " + strings.Join(in.Symptoms, " "))
		if detected := language.Normalize(s.translator.Detect(ctx, sample)); detected != language.Auto {
			return detected
		}
		return language.English
	}
	return lang
}

func (s *Service) translateAll(ctx context.Context, texts []string, lang string, fn func(context.Context, string, string) string) []string {
	if len(texts) == 0 {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = fn(ctx, t, lang)
	}
	return out
}

func (s *Service) fallback(reason string) {
	if s.recorder != nil {
		s.recorder.ObserveFallback(reason)
	}
}
