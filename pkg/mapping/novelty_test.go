package mapping

import (
	"context"
	"reflect"
	"testing"
)

type staticSource struct {
	channels     []string
	tradeClasses []string
}

func (s staticSource) DistinctNewChannels(ctx context.Context) ([]string, error) {
	return s.channels, nil
}

func (s staticSource) DistinctNewTradeClasses(ctx context.Context) ([]string, error) {
	return s.tradeClasses, nil
}

func TestDetectReturnsOnlyUnseenValues(t *testing.T) {
	detector := NewNoveltyDetector(staticSource{
		channels:     []string{"Retail", "Hospital"},
		tradeClasses: []string{"Pharmacy"},
	})

	channels, tradeClasses, err := detector.Detect(context.Background(),
		[]string{"Retail", "Mail Order", "Specialty"},
		[]string{"Pharmacy", "Clinic"},
	)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	if want := []string{"Mail Order", "Specialty"}; !reflect.DeepEqual(channels, want) {
		t.Fatalf("expected novel channels %v, got %v", want, channels)
	}
	if want := []string{"Clinic"}; !reflect.DeepEqual(tradeClasses, want) {
		t.Fatalf("expected novel trade classes %v, got %v", want, tradeClasses)
	}
}

func TestDetectAgainstEmptyHistory(t *testing.T) {
	detector := NewNoveltyDetector(staticSource{})

	channels, tradeClasses, err := detector.Detect(context.Background(),
		[]string{"Retail", "Retail", ""},
		nil,
	)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	if want := []string{"Retail"}; !reflect.DeepEqual(channels, want) {
		t.Fatalf("expected repeated batch value deduplicated to %v, got %v", want, channels)
	}
	if len(tradeClasses) != 0 {
		t.Fatalf("expected no novel trade classes, got %v", tradeClasses)
	}
}

func TestDetectIgnoresBlankAndKnownValues(t *testing.T) {
	detector := NewNoveltyDetector(staticSource{channels: []string{"Retail"}})

	channels, _, err := detector.Detect(context.Background(), []string{"", "Retail"}, nil)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(channels) != 0 {
		t.Fatalf("expected no novel channels, got %v", channels)
	}
}
