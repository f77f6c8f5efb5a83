package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"vidtrack/internal/analysis"
	"vidtrack/internal/logging"
	"vidtrack/internal/tracking"
)

type stubTranslator struct {
	out   string
	err   error
	calls []string
}

func (s *stubTranslator) Translate(_ context.Context, text, target string) (string, error) {
	s.calls = append(s.calls, text+"->"+target)
	return s.out, s.err
}

func observations(labels ...string) []tracking.Observation {
	out := make([]tracking.Observation, 0, len(labels))
	for i, label := range labels {
		out = append(out, tracking.Observation{Frame: i, ID: i, Label: label, Confidence: 0.8})
	}
	return out
}

func TestSelectPrimaryLabelExcludesPerson(t *testing.T) {
	objs := observations("person", "cup", "person", "bottle", "cup", "person")
	label, count, ok := analysis.SelectPrimaryLabel(objs)
	if !ok || label != "cup" || count != 2 {
		t.Fatalf("got %q/%d/%v, want cup/2/true", label, count, ok)
	}
}

func TestSelectPrimaryLabelPersonCaseInsensitive(t *testing.T) {
	for _, variant := range []string{"person", "Person", "PERSON", " person "} {
		objs := observations(variant, variant, variant, "dog")
		label, count, ok := analysis.SelectPrimaryLabel(objs)
		if !ok || label != "dog" || count != 1 {
			t.Fatalf("%q: got %q/%d/%v", variant, label, count, ok)
		}
	}
}

func TestSelectPrimaryLabelTieGoesToFirstSeen(t *testing.T) {
	objs := observations("bottle", "cup", "cup", "bottle")
	for i := 0; i < 20; i++ {
		label, count, ok := analysis.SelectPrimaryLabel(objs)
		if !ok || label != "bottle" || count != 2 {
			t.Fatalf("run %d: got %q/%d/%v, want bottle/2/true", i, label, count, ok)
		}
	}
}

func TestSelectPrimaryLabelNone(t *testing.T) {
	if _, _, ok := analysis.SelectPrimaryLabel(observations("person", "PERSON")); ok {
		t.Fatal("expected no label when only persons are present")
	}
	if _, _, ok := analysis.SelectPrimaryLabel(nil); ok {
		t.Fatal("expected no label for empty input")
	}
}

func TestAggregateTranslatesPrimaryLabel(t *testing.T) {
	tr := &stubTranslator{out: "Tasse"}
	agg := analysis.NewAggregator(tr, "de", logging.NewNop())

	objs := observations("person", "person", "person", "cup", "cup", "bottle")
	result := agg.Aggregate(context.Background(), nil, objs, "hallo welt")

	if result.LabelSource == nil || *result.LabelSource != "cup" {
		t.Fatalf("unexpected source label: %v", result.LabelSource)
	}
	if result.LabelTranslated == nil || *result.LabelTranslated != "Tasse" {
		t.Fatalf("unexpected translated label: %v", result.LabelTranslated)
	}
	if result.Transcript != "hallo welt" || len(result.Objects) != 6 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(tr.calls) != 1 || tr.calls[0] != "cup->de" {
		t.Fatalf("unexpected translator calls: %v", tr.calls)
	}
}

func TestAggregateFallsBackOnTranslationFailure(t *testing.T) {
	tr := &stubTranslator{err: errors.New("quota exceeded")}
	agg := analysis.NewAggregator(tr, "de", logging.NewNop())
	var fallbacks []string
	agg.OnFallback(func(label string, err error) {
		fallbacks = append(fallbacks, label)
	})

	result := agg.Aggregate(context.Background(), nil, observations("cup"), "")
	if result.LabelSource == nil || result.LabelTranslated == nil {
		t.Fatal("expected both labels to be present")
	}
	if *result.LabelTranslated != *result.LabelSource {
		t.Fatalf("expected fallback to source, got %q", *result.LabelTranslated)
	}
	if len(fallbacks) != 1 || fallbacks[0] != "cup" {
		t.Fatalf("expected one fallback hook call, got %v", fallbacks)
	}
}

func TestAggregateFallsBackOnEmptyTranslation(t *testing.T) {
	agg := analysis.NewAggregator(&stubTranslator{out: "   "}, "de", logging.NewNop())
	result := agg.Aggregate(context.Background(), nil, observations("cup"), "")
	if *result.LabelTranslated != "cup" {
		t.Fatalf("expected fallback to source, got %q", *result.LabelTranslated)
	}
}

func TestAggregateNilTranslator(t *testing.T) {
	agg := analysis.NewAggregator(nil, "de", nil)
	result := agg.Aggregate(context.Background(), nil, observations("cup"), "")
	if *result.LabelTranslated != "cup" {
		t.Fatalf("expected fallback to source, got %q", *result.LabelTranslated)
	}
}

func TestAggregateWithoutQualifyingLabel(t *testing.T) {
	tr := &stubTranslator{out: "x"}
	agg := analysis.NewAggregator(tr, "de", logging.NewNop())
	result := agg.Aggregate(context.Background(), nil, observations("Person"), "")
	if result.LabelSource != nil || result.LabelTranslated != nil {
		t.Fatalf("expected absent labels, got %v / %v", result.LabelSource, result.LabelTranslated)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("translator should not be called, got %v", tr.calls)
	}

	data, err := analysis.Encode(result)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), `"label_source":null`) || !strings.Contains(string(data), `"label_translated":null`) {
		t.Fatalf("expected null labels in %s", data)
	}
}

func TestEncodeStableFieldNames(t *testing.T) {
	label := "cup"
	result := analysis.Result{
		Faces:           []analysis.FaceObservation{{Frame: 0, FrameName: "frame_0001.jpg", Box: tracking.Box{X1: 1, Y1: 2, X2: 3, Y2: 4}}},
		Objects:         []tracking.Observation{{Frame: 0, FrameName: "frame_0001.jpg", ID: 0, Label: "cup", Box: tracking.Box{X2: 10, Y2: 10}, Confidence: 0.9}},
		Transcript:      "a <b> & c",
		LabelSource:     &label,
		LabelTranslated: &label,
	}
	data, err := analysis.Encode(result)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := `{"faces":[{"frame":0,"frame_name":"frame_0001.jpg","box":[1,2,3,4]}],` +
		`"objects":[{"frame":0,"frame_name":"frame_0001.jpg","id":0,"label":"cup","box":[0,0,10,10],"confidence":0.9}],` +
		`"transcript":"a <b> & c","label_source":"cup","label_translated":"cup"}`
	if string(data) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", data, want)
	}

	decoded, err := analysis.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	again, err := analysis.Encode(decoded)
	if err != nil {
		t.Fatalf("re-encode failed: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("round trip changed bytes:\n%s\n%s", data, again)
	}
}

func TestEncodeEmptySequences(t *testing.T) {
	data, err := analysis.Encode(analysis.Result{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(data) != `{"faces":[],"objects":[],"transcript":"","label_source":null,"label_translated":null}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}
