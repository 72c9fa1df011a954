package domain

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{name: "three darts", q: Question{ID: 1, TargetScore: 170, DartCount: 3, Values: []int{60, 60, 50}}},
		{name: "no outshot flag", q: Question{ID: 2, TargetScore: 169, NoOutshot: true}},
		{name: "zero darts means no outshot", q: Question{ID: 3, TargetScore: 163}},
		{name: "sum mismatch", q: Question{ID: 4, TargetScore: 100, DartCount: 2, Values: []int{60, 20}}, wantErr: true},
		{name: "dart count mismatch", q: Question{ID: 5, TargetScore: 40, DartCount: 2, Values: []int{40}}, wantErr: true},
		{name: "value over 60", q: Question{ID: 6, TargetScore: 61, DartCount: 1, Values: []int{61}}, wantErr: true},
		{name: "too many darts", q: Question{ID: 7, TargetScore: 8, DartCount: 4, Values: []int{2, 2, 2, 2}}, wantErr: true},
		{name: "ends on odd single", q: Question{ID: 8, TargetScore: 40, DartCount: 2, Values: []int{21, 19}}, wantErr: true},
		{name: "ends on treble", q: Question{ID: 9, TargetScore: 80, DartCount: 2, Values: []int{20, 60}}, wantErr: true},
		{name: "ends on outer bull", q: Question{ID: 10, TargetScore: 45, DartCount: 2, Values: []int{20, 25}}, wantErr: true},
		{name: "ends on bull", q: Question{ID: 11, TargetScore: 110, DartCount: 2, Values: []int{60, 50}}},
		{name: "finishable marked no outshot", q: Question{ID: 12, TargetScore: 40, NoOutshot: true}, wantErr: true},
		{name: "finishable with zero darts", q: Question{ID: 13, TargetScore: 100}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuestion) {
					t.Fatalf("expected ErrInvalidQuestion, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidQuestionsFiltersBadEntries(t *testing.T) {
	valid, errs := ValidQuestions([]Question{
		{ID: 1, TargetScore: 40, DartCount: 1, Values: []int{40}},
		{ID: 2, TargetScore: 41, DartCount: 1, Values: []int{40}},
		{ID: 3, TargetScore: 169, NoOutshot: true},
	})
	if len(valid) != 2 || valid[0].ID != 1 || valid[1].ID != 3 {
		t.Fatalf("unexpected valid set: %+v", valid)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
}

func TestQuestionInputSlots(t *testing.T) {
	if got := (Question{TargetScore: 169, NoOutshot: true}).InputSlots(); got != 3 {
		t.Fatalf("no-outshot questions keep three boxes, got %d", got)
	}
	if got := (Question{TargetScore: 40, DartCount: 1, Values: []int{40}}).InputSlots(); got != 1 {
		t.Fatalf("expected one box, got %d", got)
	}
}

func TestPlayerName(t *testing.T) {
	if (Player{}).Name() != AnonymousName || !(Player{}).Anonymous() {
		t.Fatal("empty player should be anonymous")
	}
	if (Player{ID: "u1", DisplayName: "Ann"}).Name() != "Ann" {
		t.Fatal("display name should be used")
	}
}

func TestRapidScoreAccuracy(t *testing.T) {
	if got := (RapidScore{QuestionsAnswered: 3, CorrectAnswers: 2}).Accuracy(); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := (RapidScore{}).Accuracy(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
