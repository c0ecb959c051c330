package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-drop/drop"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestSaveAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	peak := &drop.Report{
		Source:      "a.mp3",
		Duration:    180,
		Tempo:       &drop.TempoEstimate{BPM: 64, RawBPM: 128},
		Band:        drop.BandBass,
		Mode:        drop.ModePeak,
		Sensitivity: ptr(90),
		Events:      []float64{32.5, 96},
		Drop:        ptr(32.5),
		AnalyzedAt:  base,
	}
	avg := &drop.Report{
		Source:     "b.wav",
		Duration:   60,
		Tempo:      &drop.TempoEstimate{BPM: 87, RawBPM: 174},
		Band:       drop.BandHeavy,
		Mode:       drop.ModeAverage,
		MeanLevel:  ptr(-41.5),
		AnalyzedAt: base.Add(time.Minute),
	}

	for _, r := range []*drop.Report{peak, avg} {
		if _, err := s.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Source != "b.wav" || records[1].Source != "a.mp3" {
		t.Fatalf("records = %+v", records)
	}

	got := records[1]
	if got.BPM != 64 || got.RawBPM != 128 || got.Band != "bass" || got.Mode != "peak" {
		t.Errorf("peak record = %+v", got)
	}
	if got.Sensitivity == nil || *got.Sensitivity != 90 || got.Drop == nil || *got.Drop != 32.5 || got.MeanLevel != nil {
		t.Errorf("peak nullable fields = %v %v %v", got.Sensitivity, got.Drop, got.MeanLevel)
	}
	if !reflect.DeepEqual(got.Events, []float64{32.5, 96}) {
		t.Errorf("events = %v", got.Events)
	}
	if !got.AnalyzedAt.Equal(base) {
		t.Errorf("analyzed at = %v, want %v", got.AnalyzedAt, base)
	}

	if records[0].MeanLevel == nil || *records[0].MeanLevel != -41.5 || records[0].Drop != nil {
		t.Errorf("avg record = %+v", records[0])
	}
	if records[0].Events == nil || len(records[0].Events) != 0 {
		t.Errorf("avg events = %v, want empty", records[0].Events)
	}

	limited, err := s.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Source != "b.wav" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestBySource(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for i, src := range []string{"x.wav", "y.wav", "x.wav"} {
		_, err := s.Save(ctx, &drop.Report{
			Source:     src,
			Tempo:      &drop.TempoEstimate{BPM: float64(60 + i)},
			Band:       drop.BandBass,
			Mode:       drop.ModePeak,
			AnalyzedAt: time.Unix(int64(1000+i), 0),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.BySource(ctx, "x.wav")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].BPM != 62 || records[1].BPM != 60 {
		t.Errorf("records = %+v", records)
	}

	none, err := s.BySource(ctx, "z.wav")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown source = %v, %v", none, err)
	}
}

func TestSaveIncomplete(t *testing.T) {
	s := openTemp(t)

	if _, err := s.Save(context.Background(), nil); err == nil {
		t.Error("expected error for nil report")
	}
	if _, err := s.Save(context.Background(), &drop.Report{Source: "a"}); err == nil {
		t.Error("expected error for report without tempo")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(context.Background(), &drop.Report{Source: "a", Tempo: &drop.TempoEstimate{BPM: 70}}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	records, err := s.List(context.Background(), 0)
	if err != nil || len(records) != 1 {
		t.Errorf("records after reopen = %v, %v", records, err)
	}
}
