package usage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
	repousage "github.com/kailas-cloud/silverline/internal/repository/usage"
	"github.com/kailas-cloud/silverline/internal/usecase/quota"
)

// --- Mock ---

type mockReader struct {
	rec domusage.Record
	err error
}

func (m *mockReader) Get(_ context.Context, userID string, day domusage.Day) (domusage.Record, error) {
	if m.err != nil {
		return domusage.Record{}, m.err
	}
	rec := m.rec
	rec.UserID = userID
	rec.Date = day
	return rec, nil
}

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestService(r RecordReader) *Service {
	return New(r, tier.DefaultPolicy(), zap.NewNop()).WithClock(func() time.Time { return noon })
}

// --- Tests ---

func TestSnapshot_Free(t *testing.T) {
	svc := newTestService(&mockReader{rec: domusage.Record{
		TextMessages: 5, VoiceMessages: 2, TotalCost: 5*cost.TextBasic + 2*cost.Voice,
	}})

	snap, err := svc.Snapshot(context.Background(), "u1", tier.Free)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Today.Messages != 7 {
		t.Errorf("messages = %d, want 7", snap.Today.Messages)
	}
	if n, ok := snap.Today.Remaining.Value(); !ok || n != 13 {
		t.Errorf("remaining = %v, want 13", snap.Today.Remaining)
	}
	if snap.Cost != "0.0130" {
		t.Errorf("cost = %q, want 0.0130", snap.Cost)
	}
}

func TestSnapshot_PremiumUnlimited(t *testing.T) {
	svc := newTestService(&mockReader{rec: domusage.Record{TextMessages: 500}})

	snap, err := svc.Snapshot(context.Background(), "p1", tier.Premium)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(snap)
	want := `{"today":{"messages":500,"limit":"unlimited","remaining":"unlimited"},"cost":"0.0000"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestDecorate_CopiesPayload(t *testing.T) {
	svc := newTestService(&mockReader{})
	payload := map[string]any{"reply": "hello"}

	out := svc.Decorate(context.Background(), payload, "u1", tier.Free)

	if _, ok := payload[PayloadKey]; ok {
		t.Error("input payload must not be modified")
	}
	if out["reply"] != "hello" {
		t.Errorf("reply lost: %v", out)
	}
	if _, ok := out[PayloadKey].(domusage.Snapshot); !ok {
		t.Errorf("usage missing or wrong type: %T", out[PayloadKey])
	}
}

func TestDecorate_Idempotent(t *testing.T) {
	svc := newTestService(&mockReader{rec: domusage.Record{TextMessages: 3, TotalCost: 600}})
	ctx := context.Background()

	first, _ := json.Marshal(svc.Decorate(ctx, map[string]any{"reply": "a"}, "u1", tier.Free))
	second, _ := json.Marshal(svc.Decorate(ctx, map[string]any{"reply": "a"}, "u1", tier.Free))
	if string(first) != string(second) {
		t.Errorf("snapshots differ:\n%s\n%s", first, second)
	}
}

func TestDecorate_StoreErrorLeavesPayloadUndecorated(t *testing.T) {
	svc := newTestService(&mockReader{err: errors.New("down")})

	out := svc.Decorate(context.Background(), map[string]any{"reply": "ok"}, "u1", tier.Free)
	if _, ok := out[PayloadKey]; ok {
		t.Error("usage should be absent when the store fails")
	}
	if out["reply"] != "ok" {
		t.Errorf("payload lost: %v", out)
	}
}

func TestReport(t *testing.T) {
	svc := newTestService(&mockReader{rec: domusage.Record{
		TextMessages: 1, VoiceMessages: 1, ScreenshotAnalyses: 2, ScamDetections: 1,
		TotalCost: cost.TextAdvanced + cost.Voice + 3*cost.Image,
	}})

	r, err := svc.Report(context.Background(), "p1", tier.Premium, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Date != "2026-10-19" {
		t.Errorf("date = %q", r.Date)
	}
	if r.Counters != (Counters{Text: 1, Voice: 1, Screenshot: 2, Scam: 1}) {
		t.Errorf("counters = %+v", r.Counters)
	}
	if r.Images.Used != 3 || !r.Images.Remaining.IsUnlimited() {
		t.Errorf("images = %+v", r.Images)
	}
	if r.Cost != "0.0390" {
		t.Errorf("cost = %q, want 0.0390", r.Cost)
	}
}

func TestReport_ExplicitDay(t *testing.T) {
	svc := newTestService(&mockReader{})

	r, err := svc.Report(context.Background(), "u1", tier.Free, "2026-10-01")
	if err != nil {
		t.Fatal(err)
	}
	if r.Date != "2026-10-01" {
		t.Errorf("date = %q", r.Date)
	}
	if r.Images.Limit.String() != "0" {
		t.Errorf("free image limit = %s, want 0", r.Images.Limit)
	}
}

func TestReport_StoreError(t *testing.T) {
	svc := newTestService(&mockReader{err: errors.New("down")})
	if _, err := svc.Report(context.Background(), "u1", tier.Free, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestReport_UnseenDayLeavesStoreUntouched(t *testing.T) {
	store := repousage.NewMemory()
	svc := New(store, tier.DefaultPolicy(), zap.NewNop()).WithClock(func() time.Time { return noon })

	r, err := svc.Report(context.Background(), "u1", tier.Free, "2999-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Date != "2999-01-01" || r.Today.Messages != 0 {
		t.Errorf("report = %+v", r)
	}
	if _, err := svc.Snapshot(context.Background(), "u2", tier.Free); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestGateThenDecorate_LastMessageOfDay(t *testing.T) {
	ctx := context.Background()
	store := repousage.NewMemory()
	clock := func() time.Time { return noon }
	gate := quota.New(store, tier.DefaultPolicy(), cost.DefaultTable(), zap.NewNop()).WithClock(clock)
	svc := New(store, tier.DefaultPolicy(), zap.NewNop()).WithClock(clock)

	for range 19 {
		if _, err := gate.Admit(ctx, "u1", tier.Free, domusage.KindText); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := gate.Admit(ctx, "u1", tier.Free, domusage.KindText); err != nil {
		t.Fatalf("20th message should be accepted: %v", err)
	}

	out := svc.Decorate(ctx, map[string]any{"reply": "hi"}, "u1", tier.Free)
	data, _ := json.Marshal(out[PayloadKey])
	want := `{"today":{"messages":20,"limit":20,"remaining":0},"cost":"0.0040"}`
	if string(data) != want {
		t.Errorf("usage = %s, want %s", data, want)
	}

	if _, err := gate.Admit(ctx, "u1", tier.Free, domusage.KindText); err == nil {
		t.Fatal("21st message should be rejected")
	}
}
