package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/i474232898/weather-insights/internal/logger"
	"github.com/i474232898/weather-insights/internal/weather"
)

// Markers appended to the rule-based text when it is returned without augmentation.
const (
	SkipMarker     = "[Rule-based summary: language model augmentation is not configured.]"
	FallbackMarker = "[Rule-based summary: language model augmentation is currently unavailable.]"
)

// MaxRecentReadings bounds how many readings are embedded in a prompt.
const MaxRecentReadings = 5

// Outcome is the terminal state of one generation request.
type Outcome string

const (
	OutcomeNoData    Outcome = "no_data"
	OutcomeAugmented Outcome = "augmented"
	OutcomeSkipped   Outcome = "augment_skipped"
	OutcomeFallback  Outcome = "augment_failed_fallback"
)

// AugmentationErrorKind classifies a failed completion.
type AugmentationErrorKind string

const (
	KindTimeout           AugmentationErrorKind = "timeout"
	KindMalformedResponse AugmentationErrorKind = "malformed_response"
	KindServiceError      AugmentationErrorKind = "service_error"
)

// AugmentationError is returned by a Completer. It never leaves Enhance.
type AugmentationError struct {
	Kind AugmentationErrorKind
	Err  error
}

func (e *AugmentationError) Error() string {
	if e.Err == nil {
		return "augmentation " + string(e.Kind)
	}
	return fmt.Sprintf("augmentation %s: %v", e.Kind, e.Err)
}

func (e *AugmentationError) Unwrap() error {
	return e.Err
}

// Prompt is one chat completion request.
type Prompt struct {
	System string
	User   string
}

// Completer produces text for a prompt. Failures are *AugmentationError.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Augmenter optionally rewrites a rule-based narrative through a language model.
type Augmenter struct {
	completer Completer
	log       *logger.Logger
}

// NewAugmenter returns an Augmenter. A nil completer disables augmentation.
func NewAugmenter(c Completer, log *logger.Logger) *Augmenter {
	if log == nil {
		log = logger.Nop()
	}
	return &Augmenter{completer: c, log: log}
}

// Enabled reports whether a completer is configured.
func (a *Augmenter) Enabled() bool {
	return a != nil && a.completer != nil
}

// Enhance returns the augmented narrative, or base with a marker when augmentation
// is not configured or fails. It never returns an error.
func (a *Augmenter) Enhance(ctx context.Context, base string, recent []weather.Reading, locationRef string) (string, Outcome) {
	if !a.Enabled() {
		return withMarker(base, SkipMarker), OutcomeSkipped
	}

	text, err := a.completer.Complete(ctx, BuildPrompt(base, recent, locationRef))
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = &AugmentationError{Kind: KindMalformedResponse, Err: errors.New("empty completion")}
		}
	}
	if err != nil {
		var augErr *AugmentationError
		if !errors.As(err, &augErr) {
			// Completers must classify their failures; an untyped error is a bug in the completer.
			a.log.Error("completer returned an unclassified error, using rule-based text",
				zap.String("completer", fmt.Sprintf("%T", a.completer)), logger.Err(err))
			return withMarker(base, FallbackMarker), OutcomeFallback
		}
		a.log.Warn("augmentation failed, using rule-based text",
			zap.String("kind", string(augErr.Kind)), logger.Err(augErr.Err))
		return withMarker(base, FallbackMarker), OutcomeFallback
	}
	return text, OutcomeAugmented
}

func withMarker(base, marker string) string {
	return base + "\n\n" + marker
}

// BuildPrompt embeds the rule-based summary and up to MaxRecentReadings readings.
func BuildPrompt(base string, recent []weather.Reading, locationRef string) Prompt {
	if len(recent) > MaxRecentReadings {
		recent = recent[:MaxRecentReadings]
	}
	if locationRef == "" {
		locationRef = "the monitored area"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n\n", locationRef)
	fmt.Fprintf(&b, "Summary of the period:\n%s\n\n", base)
	b.WriteString("Most recent readings:\n")
	for _, r := range recent {
		fmt.Fprintf(&b, "- %s: temperature %s°C, humidity %s%%, wind %s m/s, rain probability %s%%, %s\n",
			r.ObservedAt.UTC().Format("2006-01-02 15:04"),
			optional(r.Temperature), optional(r.Humidity), optional(r.WindSpeed), optional(r.RainProbability),
			condition(r.Condition))
	}
	b.WriteString("\nWrite a short, friendly weather insight (at most 4 sentences) with practical advice.")

	return Prompt{
		System: "You are a meteorologist who explains weather data in clear, objective language for the general public.",
		User:   b.String(),
	}
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}

func condition(c *string) string {
	if c == nil || *c == "" {
		return "condition unknown"
	}
	return *c
}
